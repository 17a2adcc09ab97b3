package backup

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nico19422009/mcauto/internal/database"
)

// Backup record statuses.
const (
	StatusCreating  = "creating"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusDeleted   = "deleted"
)

// Record is one backup in the database.
type Record struct {
	ID              string    `json:"id"`
	Instance        string    `json:"instance"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	FileCount       int       `json:"file_count"`
	CreatedAt       time.Time `json:"created_at"`
	DestinationType string    `json:"destination_type"`
	DestinationPath string    `json:"destination_path"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
}

// Schedule is a recurring backup definition.
type Schedule struct {
	ID              string            `json:"id"`
	Instance        string            `json:"instance"`
	Schedule        string            `json:"schedule"` // cron expression or descriptor
	Enabled         bool              `json:"enabled"`
	IncludeLog      bool              `json:"include_log"`
	RetentionCount  int               `json:"retention_count"`
	Destination     DestinationConfig `json:"destination"`
	LastRun         time.Time         `json:"last_run,omitempty"`
	NextRun         time.Time         `json:"next_run,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Store persists backup records and schedules.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// SaveRecord inserts or replaces a backup record.
func (s *Store) SaveRecord(r *Record) error {
	query := `
		INSERT OR REPLACE INTO backups
		(id, instance, filename, size_bytes, file_count, created_at,
		 destination_type, destination_path, status, error_message, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		r.ID, r.Instance, r.Filename, r.SizeBytes, r.FileCount, r.CreatedAt,
		r.DestinationType, r.DestinationPath, r.Status, r.ErrorMessage, r.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save backup record: %w", err)
	}
	return nil
}

const recordColumns = `id, instance, filename, size_bytes, file_count, created_at,
	destination_type, destination_path, status, error_message, created_by`

func scanRecord(row interface{ Scan(...interface{}) error }) (*Record, error) {
	r := &Record{}
	var errorMsg, createdBy sql.NullString
	err := row.Scan(
		&r.ID, &r.Instance, &r.Filename, &r.SizeBytes, &r.FileCount, &r.CreatedAt,
		&r.DestinationType, &r.DestinationPath, &r.Status, &errorMsg, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	r.ErrorMessage = errorMsg.String
	r.CreatedBy = createdBy.String
	return r, nil
}

// ListRecords returns all non-deleted backups for an instance, newest
// first.
func (s *Store) ListRecords(instanceName string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM backups
		WHERE instance = ? AND status != ?
		ORDER BY created_at DESC`

	rows, err := s.db.Query(query, instanceName, StatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRecord returns one backup by ID.
func (s *Store) GetRecord(id string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM backups WHERE id = ?`
	r, err := scanRecord(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("backup not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backup: %w", err)
	}
	return r, nil
}

// SaveSchedule inserts or replaces a backup schedule.
func (s *Store) SaveSchedule(sch *Schedule) error {
	query := `
		INSERT OR REPLACE INTO backup_schedules
		(id, instance, schedule, enabled, include_log, retention_count,
		 destination_type, destination_path, last_run, next_run, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		sch.ID, sch.Instance, sch.Schedule, sch.Enabled, sch.IncludeLog, sch.RetentionCount,
		sch.Destination.Type, sch.Destination.Path,
		nullTime(sch.LastRun), nullTime(sch.NextRun), sch.CreatedAt, sch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `id, instance, schedule, enabled, include_log, retention_count,
	destination_type, destination_path, last_run, next_run, created_at, updated_at`

func scanSchedule(row interface{ Scan(...interface{}) error }) (*Schedule, error) {
	sch := &Schedule{}
	var lastRun, nextRun sql.NullTime
	err := row.Scan(
		&sch.ID, &sch.Instance, &sch.Schedule, &sch.Enabled, &sch.IncludeLog, &sch.RetentionCount,
		&sch.Destination.Type, &sch.Destination.Path,
		&lastRun, &nextRun, &sch.CreatedAt, &sch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sch.LastRun = lastRun.Time
	sch.NextRun = nextRun.Time
	return sch, nil
}

// ListSchedules returns all schedules, optionally filtered by instance.
func (s *Store) ListSchedules(instanceName string) ([]*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM backup_schedules`
	args := []interface{}{}
	if instanceName != "" {
		query += ` WHERE instance = ?`
		args = append(args, instanceName)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// GetSchedule returns one schedule by ID.
func (s *Store) GetSchedule(id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM backup_schedules WHERE id = ?`
	sch, err := scanSchedule(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	return sch, nil
}

// ListDueSchedules returns enabled schedules whose next run is unset or
// has passed.
func (s *Store) ListDueSchedules(now time.Time) ([]*Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM backup_schedules
		WHERE enabled = 1 AND (next_run IS NULL OR next_run <= ?)`

	rows, err := s.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// UpdateScheduleRuns records a schedule's last execution and next due
// time.
func (s *Store) UpdateScheduleRuns(id string, lastRun, nextRun time.Time) error {
	_, err := s.db.Exec(
		`UPDATE backup_schedules SET last_run = ?, next_run = ?, updated_at = ? WHERE id = ?`,
		lastRun, nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule runs: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(id string) error {
	res, err := s.db.Exec(`DELETE FROM backup_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule not found: %s", id)
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
