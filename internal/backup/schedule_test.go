package backup

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComputeNextRun(t *testing.T) {
	from := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 8, 28, 10, 45, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ComputeNextRun(tt.expr, from)
		if err != nil {
			t.Errorf("ComputeNextRun(%q) failed: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ComputeNextRun(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestComputeNextRunInvalid(t *testing.T) {
	if _, err := ComputeNextRun("not a cron expr", time.Now()); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestScheduleStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	sch := &Schedule{
		ID:             uuid.New().String(),
		Instance:       "survival",
		Schedule:       "0 3 * * *",
		Enabled:        true,
		IncludeLog:     false,
		RetentionCount: 7,
		Destination:    DestinationConfig{Type: "local", Path: "/srv/backups"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.SaveSchedule(sch); err != nil {
		t.Fatalf("SaveSchedule failed: %v", err)
	}

	got, err := store.GetSchedule(sch.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if got.Instance != "survival" || got.Schedule != "0 3 * * *" || got.RetentionCount != 7 {
		t.Errorf("schedule round trip mismatch: %+v", got)
	}
	if got.Destination.Type != "local" || got.Destination.Path != "/srv/backups" {
		t.Errorf("destination not persisted: %+v", got.Destination)
	}
}

func TestListDueSchedules(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	save := func(id string, enabled bool, nextRun time.Time) {
		t.Helper()
		sch := &Schedule{
			ID:        id,
			Instance:  "survival",
			Schedule:  "@hourly",
			Enabled:   enabled,
			NextRun:   nextRun,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.SaveSchedule(sch); err != nil {
			t.Fatal(err)
		}
	}

	save("due", true, now.Add(-time.Minute))
	save("never-run", true, time.Time{})
	save("future", true, now.Add(time.Hour))
	save("disabled", false, now.Add(-time.Minute))

	due, err := store.ListDueSchedules(now)
	if err != nil {
		t.Fatalf("ListDueSchedules failed: %v", err)
	}

	ids := make(map[string]bool)
	for _, sch := range due {
		ids[sch.ID] = true
	}
	if !ids["due"] || !ids["never-run"] {
		t.Errorf("due schedules missing: %v", ids)
	}
	if ids["future"] || ids["disabled"] {
		t.Errorf("schedules that are not due returned: %v", ids)
	}
}

func TestUpdateScheduleRuns(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	sch := &Schedule{
		ID:        "sch-1",
		Instance:  "survival",
		Schedule:  "@daily",
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SaveSchedule(sch); err != nil {
		t.Fatal(err)
	}

	next := now.Add(24 * time.Hour)
	if err := store.UpdateScheduleRuns("sch-1", now, next); err != nil {
		t.Fatalf("UpdateScheduleRuns failed: %v", err)
	}

	got, err := store.GetSchedule("sch-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastRun.Equal(now) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, now)
	}
	if !got.NextRun.Equal(next) {
		t.Errorf("NextRun = %v, want %v", got.NextRun, next)
	}
}

func TestDeleteSchedule(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	sch := &Schedule{ID: "sch-del", Instance: "survival", Schedule: "@daily", CreatedAt: now, UpdatedAt: now}
	if err := store.SaveSchedule(sch); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteSchedule("sch-del"); err != nil {
		t.Fatalf("DeleteSchedule failed: %v", err)
	}
	if err := store.DeleteSchedule("sch-del"); err == nil {
		t.Error("expected error deleting a missing schedule")
	}
}
