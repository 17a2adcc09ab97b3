package backup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nico19422009/mcauto/internal/instance"
)

// ScheduleRunner executes scheduled backups. It polls the database for
// due schedules rather than holding timers, so schedules survive restarts
// and edits take effect without rescheduling.
type ScheduleRunner struct {
	coordinator *Coordinator
	store       *Store
	serversDir  string
	interval    time.Duration
}

func NewScheduleRunner(coordinator *Coordinator, store *Store, serversDir string) *ScheduleRunner {
	return &ScheduleRunner{
		coordinator: coordinator,
		store:       store,
		serversDir:  serversDir,
		interval:    30 * time.Second,
	}
}

// Start launches the polling loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (sr *ScheduleRunner) Start(ctx context.Context) {
	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Printf("[BackupSchedule] Stopping schedule runner")
				return
			case <-ticker.C:
				sr.runDueSchedules()
			}
		}
	}()
}

func (sr *ScheduleRunner) runDueSchedules() {
	now := time.Now()
	schedules, err := sr.store.ListDueSchedules(now)
	if err != nil {
		log.Printf("[BackupSchedule] Failed to list due schedules: %v", err)
		return
	}

	for _, schedule := range schedules {
		nextRun, err := ComputeNextRun(schedule.Schedule, now)
		if err != nil {
			log.Printf("[BackupSchedule] Invalid schedule for %s: %v", schedule.Instance, err)
			continue
		}

		if err := sr.store.UpdateScheduleRuns(schedule.ID, now, nextRun); err != nil {
			log.Printf("[BackupSchedule] Failed to update run times: %v", err)
		}

		go sr.executeSchedule(schedule)
	}
}

func (sr *ScheduleRunner) executeSchedule(schedule *Schedule) {
	inst, err := instance.Lookup(sr.serversDir, schedule.Instance)
	if err != nil {
		log.Printf("[BackupSchedule] Instance %s not found, skipping: %v", schedule.Instance, err)
		return
	}

	opts := Options{
		IncludeLog:     schedule.IncludeLog,
		CreatedBy:      "scheduler",
		RetentionCount: schedule.RetentionCount,
	}
	if schedule.Destination.Type != "" {
		opts.Destination = &schedule.Destination
	}

	if _, err := sr.coordinator.CreateBackup(inst, opts); err != nil {
		log.Printf("[BackupSchedule] Backup failed for %s: %v", schedule.Instance, err)
	}
}

// ComputeNextRun evaluates a cron expression (with optional seconds field
// and @descriptors) against a reference time.
func ComputeNextRun(schedule string, from time.Time) (time.Time, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	parsed, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return parsed.Next(from), nil
}
