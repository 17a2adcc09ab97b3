package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nico19422009/mcauto/internal/database"
	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/session"
)

type fakeConsole struct {
	state       session.State
	commands    []string
	failSaveAll bool
}

func (f *fakeConsole) Status(*instance.Instance) (session.State, error) {
	return f.state, nil
}

func (f *fakeConsole) SendCommand(_ *instance.Instance, cmd string) error {
	f.commands = append(f.commands, cmd)
	if f.failSaveAll && cmd == "save-all" {
		return errors.New("console wedged")
	}
	return nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "mcauto.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return NewStore(db)
}

func newTestCoordinator(t *testing.T, console *fakeConsole) *Coordinator {
	t.Helper()
	c := NewCoordinator(console, newTestStore(t))
	c.SettleDelay = 0
	return c
}

func TestCreateBackupStoppedInstance(t *testing.T) {
	console := &fakeConsole{state: session.StateStopped}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)

	record, err := c.CreateBackup(inst, Options{})
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if record.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if len(console.commands) != 0 {
		t.Errorf("console commands sent to a stopped instance: %v", console.commands)
	}
	if _, err := os.Stat(filepath.Join(inst.Dir, "backups", record.Filename)); err != nil {
		t.Errorf("archive not in default location: %v", err)
	}
}

func TestCreateBackupQuiescesLiveInstance(t *testing.T) {
	console := &fakeConsole{state: session.StateRunning}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)

	if _, err := c.CreateBackup(inst, Options{}); err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	want := []string{"save-off", "save-all", "save-on"}
	if len(console.commands) != len(want) {
		t.Fatalf("commands = %v, want %v", console.commands, want)
	}
	for i, cmd := range want {
		if console.commands[i] != cmd {
			t.Errorf("command[%d] = %q, want %q", i, console.commands[i], cmd)
		}
	}
}

func TestCreateBackupResumesAutosaveOnFailure(t *testing.T) {
	console := &fakeConsole{state: session.StateRunning, failSaveAll: true}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)

	_, err := c.CreateBackup(inst, Options{})
	if err == nil {
		t.Fatal("expected quiesce failure")
	}

	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("error type = %T, want *BackupError", err)
	}
	if backupErr.Stage != "quiesce" {
		t.Errorf("stage = %q, want quiesce", backupErr.Stage)
	}

	// Autosave must come back even though the flush failed.
	last := console.commands[len(console.commands)-1]
	if last != "save-on" {
		t.Errorf("last command = %q, want save-on", last)
	}

	records, err := c.ListBackups(inst.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != StatusFailed {
		t.Errorf("failure not recorded: %+v", records)
	}
}

func TestCreateBackupUsesConfiguredDefaultDir(t *testing.T) {
	console := &fakeConsole{state: session.StateStopped}
	c := newTestCoordinator(t, console)
	c.DefaultDir = t.TempDir()
	inst := testWorld(t)

	record, err := c.CreateBackup(inst, Options{})
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	wantDir := filepath.Join(c.DefaultDir, inst.Name())
	if record.DestinationPath != wantDir {
		t.Errorf("destination path = %q, want %q", record.DestinationPath, wantDir)
	}
	if _, err := os.Stat(filepath.Join(wantDir, record.Filename)); err != nil {
		t.Errorf("archive not in configured backup dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(inst.Dir, "backups")); !os.IsNotExist(err) {
		t.Error("sibling backups dir created despite configured backup dir")
	}
}

func TestCreateBackupToLocalDestination(t *testing.T) {
	console := &fakeConsole{state: session.StateStopped}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)
	destDir := t.TempDir()

	record, err := c.CreateBackup(inst, Options{
		Destination: &DestinationConfig{Type: "local", Path: destDir},
	})
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, record.Filename)); err != nil {
		t.Errorf("archive missing at destination: %v", err)
	}
	if record.DestinationPath != destDir {
		t.Errorf("destination path = %q", record.DestinationPath)
	}
}

func TestDeleteBackup(t *testing.T) {
	console := &fakeConsole{state: session.StateStopped}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)

	record, err := c.CreateBackup(inst, Options{})
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if err := c.DeleteBackup(record.ID); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(inst.Dir, "backups", record.Filename)); !os.IsNotExist(err) {
		t.Error("archive still on disk after delete")
	}

	got, err := c.GetBackup(record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusDeleted {
		t.Errorf("status = %q, want deleted", got.Status)
	}

	records, err := c.ListBackups(inst.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("deleted backup still listed: %+v", records)
	}
}

func TestEnforceRetention(t *testing.T) {
	store := newTestStore(t)
	c := NewCoordinator(&fakeConsole{state: session.StateStopped}, store)
	destDir := t.TempDir()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		filename := fmt.Sprintf("survival_%d.zip", i)
		if err := os.WriteFile(filepath.Join(destDir, filename), []byte("archive"), 0644); err != nil {
			t.Fatal(err)
		}
		record := &Record{
			ID:              fmt.Sprintf("backup-%d", i),
			Instance:        "survival",
			Filename:        filename,
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
			DestinationType: "local",
			DestinationPath: destDir,
			Status:          StatusCompleted,
		}
		if err := store.SaveRecord(record); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.EnforceRetention("survival", 2); err != nil {
		t.Fatalf("EnforceRetention failed: %v", err)
	}

	records, err := c.ListBackups("survival")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("retained %d backups, want 2", len(records))
	}
	// Newest two survive.
	if records[0].ID != "backup-4" || records[1].ID != "backup-3" {
		t.Errorf("wrong backups retained: %s, %s", records[0].ID, records[1].ID)
	}

	// Oldest archives are gone from disk.
	for _, i := range []int{0, 1, 2} {
		path := filepath.Join(destDir, fmt.Sprintf("survival_%d.zip", i))
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("archive %s not deleted", path)
		}
	}
}

func TestRestoreBackup(t *testing.T) {
	console := &fakeConsole{state: session.StateStopped}
	c := newTestCoordinator(t, console)
	inst := testWorld(t)

	record, err := c.CreateBackup(inst, Options{})
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restored")
	if err := c.RestoreBackup(record.ID, restoreDir); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(restoreDir, "world", "level.dat")); err != nil {
		t.Errorf("restored world missing: %v", err)
	}
}
