package session

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/nico19422009/mcauto/internal/instance"
)

// State is the observed lifecycle state of an instance.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Supervisor orchestrates instance lifecycles on top of the screen
// multiplexer. It keeps no state of its own: the multiplexer's session
// list is the single source of truth, so supervision survives restarts of
// this process and coexists with sessions started by hand.
type Supervisor struct {
	screen *Screen

	// JavaPath is the java binary used to launch instances.
	JavaPath string

	// StopTimeout bounds how long a graceful stop waits before the
	// session is forcibly terminated.
	StopTimeout time.Duration

	// PollInterval is the delay between liveness checks while waiting
	// for a graceful stop.
	PollInterval time.Duration
}

func NewSupervisor(screen *Screen, javaPath string) *Supervisor {
	if javaPath == "" {
		javaPath = "java"
	}
	return &Supervisor{
		screen:       screen,
		JavaPath:     javaPath,
		StopTimeout:  20 * time.Second,
		PollInterval: 1 * time.Second,
	}
}

// SessionName returns the multiplexer session name for the instance.
func (s *Supervisor) SessionName(inst *instance.Instance) string {
	return Name(inst.Name())
}

// Status reports whether the instance's session is alive.
func (s *Supervisor) Status(inst *instance.Instance) (State, error) {
	running, err := s.screen.IsRunning(s.SessionName(inst))
	if err != nil {
		return StateStopped, fmt.Errorf("failed to check session: %w", err)
	}
	if running {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// Start launches the instance in a detached session. The jar must exist;
// a second start while the session lives fails with ErrAlreadyRunning.
func (s *Supervisor) Start(inst *instance.Instance) error {
	name := s.SessionName(inst)

	running, err := s.screen.IsRunning(name)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if running {
		return fmt.Errorf("instance %s: %w", inst.Name(), ErrAlreadyRunning)
	}

	if _, err := os.Stat(inst.JarPath()); err != nil {
		return fmt.Errorf("instance %s (%s): %w", inst.Name(), inst.Descriptor.Jar, ErrArtifactMissing)
	}

	command := s.buildJavaCommand(inst)
	log.Printf("[Supervisor] Starting %s in session %s", inst.Name(), name)

	if err := s.screen.Start(name, inst.Dir, command, inst.LogPath()); err != nil {
		return fmt.Errorf("instance %s: %w: %v", inst.Name(), ErrSpawnFailed, err)
	}
	return nil
}

// buildJavaCommand assembles the launch command line from the instance's
// descriptor. Memory falls back to the launch script's record when the
// descriptor holds the unknown sentinel.
func (s *Supervisor) buildJavaCommand(inst *instance.Instance) string {
	memory := inst.Descriptor.Memory
	if memory == "" || memory == instance.Unknown {
		memory = "2G"
	}

	parts := []string{
		s.JavaPath,
		"-Xms" + memory,
		"-Xmx" + memory,
		"-jar", fmt.Sprintf("%q", inst.Descriptor.Jar),
	}
	parts = append(parts, inst.Descriptor.Loader.ServerArgs()...)
	return strings.Join(parts, " ")
}

// Stop shuts the instance down gracefully: it sends the in-game stop
// command, waits for the session to disappear, and escalates to killing
// the session if the server does not exit in time. Stopping an already
// stopped instance is a no-op.
func (s *Supervisor) Stop(inst *instance.Instance) error {
	name := s.SessionName(inst)

	running, err := s.screen.IsRunning(name)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !running {
		log.Printf("[Supervisor] Instance %s already stopped", inst.Name())
		return nil
	}

	log.Printf("[Supervisor] Stopping %s (timeout %v)", inst.Name(), s.StopTimeout)
	if err := s.screen.SendInput(name, "stop"); err != nil {
		log.Printf("[Supervisor] Failed to send stop command to %s: %v", inst.Name(), err)
	}

	deadline := time.Now().Add(s.StopTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(s.PollInterval)
		running, err := s.screen.IsRunning(name)
		if err != nil {
			log.Printf("[Supervisor] Liveness check failed during stop: %v", err)
			continue
		}
		if !running {
			log.Printf("[Supervisor] Instance %s stopped gracefully", inst.Name())
			return nil
		}
	}

	log.Printf("[Supervisor] Instance %s did not stop in %v, terminating session", inst.Name(), s.StopTimeout)
	if err := s.screen.Quit(name); err != nil {
		return fmt.Errorf("failed to terminate session: %w", err)
	}
	return nil
}

// Restart stops the instance, waits briefly, and starts it again.
func (s *Supervisor) Restart(inst *instance.Instance) error {
	if err := s.Stop(inst); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	time.Sleep(s.PollInterval)
	return s.Start(inst)
}

// SendCommand types a console command into the running instance.
func (s *Supervisor) SendCommand(inst *instance.Instance, command string) error {
	state, err := s.Status(inst)
	if err != nil {
		return err
	}
	if state != StateRunning {
		return fmt.Errorf("instance %s: %w", inst.Name(), ErrNotRunning)
	}
	return s.screen.SendInput(s.SessionName(inst), command)
}

// TailOutput returns up to n trailing lines of the instance's console
// log. A missing log file yields no lines, not an error: the instance may
// simply never have run.
func (s *Supervisor) TailOutput(inst *instance.Instance, n int) ([]string, error) {
	data, err := os.ReadFile(inst.LogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read console log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Attach hands the calling terminal over to the instance's session.
// Blocks until the operator detaches (Ctrl-A d) or the session dies.
// Attaching to a stopped instance only logs; there is no session to
// hand over, but that is not a failure of the attach itself.
func (s *Supervisor) Attach(inst *instance.Instance) error {
	name := s.SessionName(inst)

	running, err := s.screen.IsRunning(name)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !running {
		log.Printf("[Supervisor] Instance %s is not running, nothing to attach to", inst.Name())
		return nil
	}

	cmd := exec.Command("screen", "-r", name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}
	return nil
}
