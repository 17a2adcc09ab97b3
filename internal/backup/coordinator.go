package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/session"
)

// Console is the slice of supervision the coordinator needs: checking
// liveness and typing console commands for world quiescing.
type Console interface {
	Status(*instance.Instance) (session.State, error)
	SendCommand(*instance.Instance, string) error
}

// BackupError wraps a failure with the instance and stage it happened in.
type BackupError struct {
	Instance string
	Stage    string // "quiesce", "archive", "transfer"
	Err      error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of %s failed during %s: %v", e.Instance, e.Stage, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// Options configures one backup run.
type Options struct {
	IncludeLog     bool
	Destination    *DestinationConfig
	CreatedBy      string
	RetentionCount int
}

// Coordinator runs backups end to end: quiesce the world if the server is
// live, archive the instance directory, hand the archive to its
// destination, and record the outcome.
type Coordinator struct {
	console Console
	store   *Store

	// DefaultDir is the base directory for archives when a backup names
	// no destination. Empty means each instance gets a sibling "backups"
	// directory next to itself.
	DefaultDir string

	// SettleDelay is how long to wait after save-all for the server to
	// finish flushing chunks to disk.
	SettleDelay time.Duration
}

func NewCoordinator(console Console, store *Store) *Coordinator {
	return &Coordinator{
		console:     console,
		store:       store,
		SettleDelay: 3 * time.Second,
	}
}

// CreateBackup produces one archive of the instance. A running server is
// backed up live: autosave is paused and the world flushed first, and
// autosave is re-enabled afterwards no matter how the backup ends.
func (c *Coordinator) CreateBackup(inst *instance.Instance, opts Options) (*Record, error) {
	backupID := "backup-" + uuid.New().String()[:8]

	dest := opts.Destination
	if dest == nil || dest.Type == "" {
		dest = &DestinationConfig{
			Type: "local",
			Path: c.defaultPath(inst),
		}
	}

	record := &Record{
		ID:              backupID,
		Instance:        inst.Name(),
		Status:          StatusCreating,
		CreatedAt:       time.Now(),
		DestinationType: dest.Type,
		DestinationPath: dest.Path,
		CreatedBy:       opts.CreatedBy,
	}
	if err := c.store.SaveRecord(record); err != nil {
		return nil, fmt.Errorf("failed to save backup record: %w", err)
	}

	fail := func(stage string, err error) (*Record, error) {
		record.Status = StatusFailed
		record.ErrorMessage = err.Error()
		if saveErr := c.store.SaveRecord(record); saveErr != nil {
			log.Printf("[Backup] Failed to record failure of %s: %v", backupID, saveErr)
		}
		return nil, &BackupError{Instance: inst.Name(), Stage: stage, Err: err}
	}

	log.Printf("[Backup] Creating backup %s for %s", backupID, inst.Name())

	quiesced, err := c.quiesce(inst)
	if quiesced {
		defer c.resume(inst)
	}
	if err != nil {
		return fail("quiesce", err)
	}

	stagingDir := dest.Path
	if dest.Type != "local" {
		stagingDir = c.defaultPath(inst)
	}
	archivePath := filepath.Join(stagingDir, ArchiveName(inst, record.CreatedAt))

	info, err := CreateArchive(inst, archivePath, opts.IncludeLog)
	if err != nil {
		return fail("archive", err)
	}

	record.Filename = info.Filename
	record.SizeBytes = info.SizeBytes
	record.FileCount = info.FileCount

	if dest.Type != "local" {
		if err := c.transfer(info, dest); err != nil {
			os.Remove(info.Path)
			return fail("transfer", err)
		}
		if err := os.Remove(info.Path); err != nil {
			log.Printf("[Backup] Failed to remove staged archive %s: %v", info.Path, err)
		}
	}

	record.Status = StatusCompleted
	if err := c.store.SaveRecord(record); err != nil {
		log.Printf("[Backup] Failed to update backup record %s: %v", backupID, err)
	}

	if opts.RetentionCount > 0 {
		if err := c.EnforceRetention(inst.Name(), opts.RetentionCount); err != nil {
			log.Printf("[Backup] Retention enforcement failed for %s: %v", inst.Name(), err)
		}
	}

	log.Printf("[Backup] Backup %s complete: %s (%d bytes, %d files)",
		backupID, record.Filename, record.SizeBytes, record.FileCount)
	return record, nil
}

// defaultPath is where an instance's archives land when no destination
// is given: a per-instance subdirectory of the configured backup dir, or
// a sibling "backups" directory when none is configured.
func (c *Coordinator) defaultPath(inst *instance.Instance) string {
	if c.DefaultDir != "" {
		return filepath.Join(c.DefaultDir, inst.Name())
	}
	return filepath.Join(inst.Dir, "backups")
}

// quiesce pauses autosave and flushes the world on a running server.
// Returns whether autosave was paused and must be re-enabled.
func (c *Coordinator) quiesce(inst *instance.Instance) (bool, error) {
	state, err := c.console.Status(inst)
	if err != nil {
		return false, fmt.Errorf("failed to check instance state: %w", err)
	}
	if state != session.StateRunning {
		return false, nil
	}

	log.Printf("[Backup] Quiescing live instance %s", inst.Name())
	if err := c.console.SendCommand(inst, "save-off"); err != nil {
		return false, fmt.Errorf("failed to pause autosave: %w", err)
	}
	if err := c.console.SendCommand(inst, "save-all"); err != nil {
		// Autosave is already off; make sure resume still happens.
		return true, fmt.Errorf("failed to flush world: %w", err)
	}
	time.Sleep(c.SettleDelay)
	return true, nil
}

// resume re-enables autosave. Best effort: a failure here means the
// operator must run save-on by hand, so it is logged loudly.
func (c *Coordinator) resume(inst *instance.Instance) {
	if err := c.console.SendCommand(inst, "save-on"); err != nil {
		log.Printf("[Backup] WARNING: failed to re-enable autosave on %s, run save-on manually: %v",
			inst.Name(), err)
	}
}

func (c *Coordinator) transfer(info *ArchiveInfo, destConfig *DestinationConfig) error {
	dest, err := NewDestination(destConfig)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if sftpDest, ok := dest.(*SFTPDestination); ok {
		defer sftpDest.Close()
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := dest.Upload(info.Filename, f, info.SizeBytes); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}
	return nil
}

// DeleteBackup removes a backup's archive from its destination and marks
// the record deleted.
func (c *Coordinator) DeleteBackup(backupID string) error {
	record, err := c.store.GetRecord(backupID)
	if err != nil {
		return err
	}

	dest, err := NewDestination(&DestinationConfig{
		Type: record.DestinationType,
		Path: record.DestinationPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if sftpDest, ok := dest.(*SFTPDestination); ok {
		defer sftpDest.Close()
	}

	if err := dest.Delete(record.Filename); err != nil {
		log.Printf("[Backup] Failed to delete archive for %s: %v", backupID, err)
	}

	record.Status = StatusDeleted
	if err := c.store.SaveRecord(record); err != nil {
		return fmt.Errorf("failed to update backup record: %w", err)
	}

	log.Printf("[Backup] Deleted backup %s", backupID)
	return nil
}

// EnforceRetention deletes the oldest completed backups of an instance
// beyond keep. Records come back newest first from the store.
func (c *Coordinator) EnforceRetention(instanceName string, keep int) error {
	if keep <= 0 {
		return nil
	}

	records, err := c.store.ListRecords(instanceName)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	var completed []*Record
	for _, r := range records {
		if r.Status == StatusCompleted {
			completed = append(completed, r)
		}
	}
	if len(completed) <= keep {
		return nil
	}

	deleted := 0
	for _, r := range completed[keep:] {
		if err := c.DeleteBackup(r.ID); err != nil {
			log.Printf("[Backup] Failed to delete %s during retention: %v", r.ID, err)
			continue
		}
		deleted++
	}

	log.Printf("[Backup] Retention for %s: deleted %d of %d backups (keep %d)",
		instanceName, deleted, len(completed), keep)
	return nil
}

// ListBackups returns the instance's non-deleted backups.
func (c *Coordinator) ListBackups(instanceName string) ([]*Record, error) {
	return c.store.ListRecords(instanceName)
}

// GetBackup returns one backup record.
func (c *Coordinator) GetBackup(backupID string) (*Record, error) {
	return c.store.GetRecord(backupID)
}

// RestoreBackup downloads a backup archive and unpacks it into destDir.
func (c *Coordinator) RestoreBackup(backupID, destDir string) error {
	record, err := c.store.GetRecord(backupID)
	if err != nil {
		return err
	}
	if record.Status != StatusCompleted {
		return fmt.Errorf("backup is not restorable: status %s", record.Status)
	}

	dest, err := NewDestination(&DestinationConfig{
		Type: record.DestinationType,
		Path: record.DestinationPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if sftpDest, ok := dest.(*SFTPDestination); ok {
		defer sftpDest.Close()
	}

	tmp, err := os.CreateTemp("", "mcauto-restore-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := dest.Download(record.Filename, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := ExtractArchive(tmp.Name(), destDir); err != nil {
		return fmt.Errorf("failed to extract backup: %w", err)
	}

	log.Printf("[Backup] Restored %s into %s", backupID, destDir)
	return nil
}
