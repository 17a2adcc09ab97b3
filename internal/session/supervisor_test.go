package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nico19422009/mcauto/internal/instance"
)

func testInstance(t *testing.T, name string) *instance.Instance {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	jar := "server-1.21.1.jar"
	if err := os.WriteFile(filepath.Join(dir, jar), []byte("jar"), 0644); err != nil {
		t.Fatal(err)
	}
	return &instance.Instance{
		Dir: dir,
		Descriptor: instance.Descriptor{
			Jar:     jar,
			Loader:  instance.LoaderVanilla,
			Memory:  "2G",
			Version: "1.21.1",
		},
	}
}

func testSupervisor(host *screenHost) *Supervisor {
	sup := NewSupervisor(host.screen(), "java")
	sup.StopTimeout = 100 * time.Millisecond
	sup.PollInterval = time.Millisecond
	return sup
}

func TestStartStopLifecycle(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	state, err := sup.Status(inst)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if state != StateStopped {
		t.Fatalf("fresh instance state = %v, want stopped", state)
	}

	if err := sup.Start(inst); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	state, err = sup.Status(inst)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if state != StateRunning {
		t.Fatalf("state after Start = %v, want running", state)
	}

	if err := sup.Stop(inst); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	state, _ = sup.Status(inst)
	if state != StateStopped {
		t.Errorf("state after Stop = %v, want stopped", state)
	}

	// The stop console command was typed into the session.
	found := false
	for _, in := range host.inputs {
		if strings.Contains(in, "'stop\n'") {
			found = true
		}
	}
	if !found {
		t.Error("stop command never sent to session")
	}
}

func TestStartWhileRunning(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	if err := sup.Start(inst); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sup.Start(inst); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStartMissingJar(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")
	if err := os.Remove(inst.JarPath()); err != nil {
		t.Fatal(err)
	}

	if err := sup.Start(inst); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Start error = %v, want ErrArtifactMissing", err)
	}
	if len(host.sessions) != 0 {
		t.Error("session created despite missing jar")
	}
}

func TestStopWhileStoppedIsNoop(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	if err := sup.Stop(inst); err != nil {
		t.Fatalf("Stop on stopped instance failed: %v", err)
	}
	if len(host.inputs) != 0 {
		t.Errorf("inputs sent to a stopped instance: %v", host.inputs)
	}
}

func TestStopEscalatesToQuit(t *testing.T) {
	host := newScreenHost()
	host.exitOnStop = false // server ignores its stop command
	sup := testSupervisor(host)
	inst := testInstance(t, "stubborn")

	if err := sup.Start(inst); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sup.Stop(inst); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	state, _ := sup.Status(inst)
	if state != StateStopped {
		t.Errorf("session survived escalation: state = %v", state)
	}
}

func TestSendCommandNotRunning(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	err := sup.SendCommand(inst, "say hello")
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("SendCommand error = %v, want ErrNotRunning", err)
	}
}

func TestSendCommandRunning(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	if err := sup.Start(inst); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sup.SendCommand(inst, "say hello"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if len(host.inputs) != 1 || !strings.Contains(host.inputs[0], "say hello") {
		t.Errorf("command not delivered: %v", host.inputs)
	}
}

func TestAttachNotRunning(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "ghost")

	if err := sup.Attach(inst); err != nil {
		t.Errorf("Attach on stopped instance = %v, want nil", err)
	}
}

func TestBuildJavaCommand(t *testing.T) {
	sup := NewSupervisor(newScreenHost().screen(), "/usr/bin/java")
	inst := &instance.Instance{
		Dir: "/srv/mc/survival",
		Descriptor: instance.Descriptor{
			Jar:    "server-1.21.1.jar",
			Loader: instance.LoaderVanilla,
			Memory: "4G",
		},
	}

	cmd := sup.buildJavaCommand(inst)
	for _, token := range []string{"/usr/bin/java", "-Xms4G", "-Xmx4G", `-jar "server-1.21.1.jar"`, "nogui"} {
		if !strings.Contains(cmd, token) {
			t.Errorf("command missing %q: %s", token, cmd)
		}
	}
}

func TestBuildJavaCommandUnknownMemory(t *testing.T) {
	sup := NewSupervisor(newScreenHost().screen(), "java")
	inst := &instance.Instance{
		Dir:        "/srv/mc/old",
		Descriptor: instance.Descriptor{Jar: "server.jar", Memory: instance.Unknown},
	}

	cmd := sup.buildJavaCommand(inst)
	if !strings.Contains(cmd, "-Xmx2G") {
		t.Errorf("unknown memory did not fall back to default: %s", cmd)
	}
}

func TestTailOutput(t *testing.T) {
	host := newScreenHost()
	sup := testSupervisor(host)
	inst := testInstance(t, "survival")

	lines, err := sup.TailOutput(inst, 10)
	if err != nil {
		t.Fatalf("TailOutput without log failed: %v", err)
	}
	if lines != nil {
		t.Errorf("expected no lines, got %v", lines)
	}

	log := "[10:00:01] line one\n[10:00:02] line two\n[10:00:03] line three\n"
	if err := os.WriteFile(inst.LogPath(), []byte(log), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err = sup.TailOutput(inst, 2)
	if err != nil {
		t.Fatalf("TailOutput failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("TailOutput returned %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[1], "line three") {
		t.Errorf("last line = %q", lines[1])
	}
}
