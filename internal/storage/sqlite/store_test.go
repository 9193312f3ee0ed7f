package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "dayplan.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitWritesDefaultSettings(t *testing.T) {
	s := setupStore(t)
	settings, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}

	settings.BreakMin = 0
	settings.DayStart = "09:00"
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := s.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.BreakMin != 0 || got.DayStart != "09:00" {
		t.Errorf("settings not updated: %+v", got)
	}
}

func TestLoadRequiresInit(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := s.Load(); err == nil {
		t.Fatal("expected Load to fail on a missing database")
	}
}

func TestLoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dayplan.db")
	s := NewStore(path)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetSettings(); err != nil {
		t.Errorf("GetSettings after Load failed: %v", err)
	}
	if reopened.GetConfigPath() != path {
		t.Errorf("GetConfigPath = %s", reopened.GetConfigPath())
	}
}

func TestSheetRows(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"Essay", "Project"} {
		if err := s.AppendRow(ctx, constants.SheetPriority, models.Row{"name": name, "priority": "high"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}
	if err := s.AppendRow(ctx, constants.SheetFixed, models.Row{"name": "Standup"}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ReadRows(ctx, constants.SheetPriority)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Get("name") != "Essay" || rows[1].Get("name") != "Project" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	if err := s.UpdateRow(ctx, constants.SheetPriority, 1, models.Row{"name": "Project v2"}); err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	rows, _ = s.ReadRows(ctx, constants.SheetPriority)
	if rows[1].Get("name") != "Project v2" {
		t.Errorf("row not updated: %v", rows[1])
	}

	if err := s.UpdateRow(ctx, constants.SheetPriority, 7, models.Row{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteRow(ctx, constants.SheetPriority, 0); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	if err := s.ClearSheet(ctx, constants.SheetPriority); err != nil {
		t.Fatal(err)
	}
	rows, _ = s.ReadRows(ctx, constants.SheetPriority)
	if len(rows) != 0 {
		t.Errorf("expected empty sheet, got %v", rows)
	}
	fixed, _ := s.ReadRows(ctx, constants.SheetFixed)
	if len(fixed) != 1 {
		t.Errorf("clearing priority touched fixed: %v", fixed)
	}
}

func TestEventsUpsertByTask(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	first, err := s.CreateEvent(ctx, models.Event{TaskID: "t1", Name: "Essay", Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	second, err := s.CreateEvent(ctx, models.Event{TaskID: "t1", Name: "Essay", Start: at(13, 0), End: at(14, 0)})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-creating a task event should keep its id: %s != %s", first.ID, second.ID)
	}
	if !second.Start.Equal(at(13, 0)) {
		t.Errorf("event not moved: %v", second.Start)
	}

	if _, err := s.CreateEvent(ctx, models.Event{Name: "Dentist", Start: at(9, 0), End: at(9, 30)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEvent(ctx, models.Event{Name: "Bad", Start: at(9, 0), End: at(9, 0)}); err == nil {
		t.Error("expected error for empty event")
	}

	events, err := s.ListEvents(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "Dentist" || events[1].Name != "Essay" {
		t.Errorf("events not ordered by start: %v", events)
	}

	// Half-open window: an event ending exactly at the window start is excluded.
	events, _ = s.ListEvents(ctx, at(9, 30), at(12, 0))
	if len(events) != 0 {
		t.Errorf("expected no events in 09:30-12:00, got %v", events)
	}
}

func TestTrackedTasks(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	due := time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)

	a, err := s.CreateTrackedTask(ctx, models.TrackedTask{TaskID: "t1", Name: "Essay", Due: due})
	if err != nil {
		t.Fatalf("CreateTrackedTask failed: %v", err)
	}
	if a.Status != models.TrackedOpen {
		t.Errorf("expected open status, got %s", a.Status)
	}
	b, err := s.CreateTrackedTask(ctx, models.TrackedTask{TaskID: "t1", Name: "Essay", Due: due.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID || !b.Due.Equal(due.Add(time.Hour)) {
		t.Errorf("upsert failed: %+v -> %+v", a, b)
	}

	if err := s.MarkTrackedTask(ctx, "t1", models.TrackedDone); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTrackedTask(ctx, "t1")
	if got.Status != models.TrackedDone {
		t.Errorf("status = %s", got.Status)
	}

	// Upserting a closed task keeps it closed.
	c, err := s.CreateTrackedTask(ctx, models.TrackedTask{TaskID: "t1", Name: "Essay", Due: due, Status: models.TrackedOpen})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.TrackedDone || !c.Due.Equal(due) {
		t.Errorf("upsert of closed task = %+v", c)
	}
	if _, err := s.CreateTrackedTask(ctx, models.TrackedTask{Name: "orphan"}); err == nil {
		t.Error("expected error without task id")
	}
}

func TestCandidatesAndSchedules(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 15, 10, 45, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	cand := models.ScheduleCandidate{
		ID:          "c1",
		Score:       75,
		Explanation: "priority first",
		Conflicts:   []string{`"Essay" could not be scheduled`},
		Details:     []models.Conflict{{Kind: models.ConflictUnscheduled, A: "t2", AName: "Essay"}},
		Strategy:    "priority",
		Payload: models.SchedulePayload{
			Date:  "2024-03-15",
			Tasks: []models.Task{{ID: "t1", Name: "Project", Start: &start, End: &end, DurationMin: 120}},
		},
		CreatedAt: time.Now(),
	}
	if err := s.SaveCandidates(ctx, []models.ScheduleCandidate{cand}); err != nil {
		t.Fatalf("SaveCandidates failed: %v", err)
	}

	got, err := s.GetCandidate(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if got.Score != 75 || len(got.Conflicts) != 1 || len(got.Details) != 1 || len(got.Payload.Tasks) != 1 {
		t.Errorf("candidate did not round trip: %+v", got)
	}
	if !got.Payload.Tasks[0].Start.Equal(start) {
		t.Errorf("task start = %v", got.Payload.Tasks[0].Start)
	}
	if _, err := s.GetCandidate(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	list, _ := s.ListCandidates(ctx, "2024-03-15")
	if len(list) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(list))
	}

	if _, err := s.LatestSchedule(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound before apply, got %v", err)
	}
	if err := s.SaveSchedule(ctx, cand.ID, cand.Payload); err != nil {
		t.Fatalf("SaveSchedule failed: %v", err)
	}
	if err := s.SaveSchedule(ctx, cand.ID, cand.Payload); err != nil {
		t.Fatalf("re-saving the same schedule failed: %v", err)
	}
	latest, err := s.LatestSchedule(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Date != "2024-03-15" || len(latest.Tasks) != 1 {
		t.Errorf("unexpected latest schedule: %+v", latest)
	}
}

func TestNotifications(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 9, 55, 0, 0, time.UTC)

	cfg := models.NotificationConfig{
		ID:            "t1:start",
		Kind:          models.NotificationTaskStart,
		Title:         "Starting soon",
		Message:       "Essay starts at 10:00",
		TaskID:        "t1",
		ScheduledTime: at,
		State:         models.StatePending,
		Actions:       []models.NotificationAction{{ID: "snooze", Label: "Snooze", Kind: models.ActionSnooze, Payload: map[string]string{"minutes": "5"}}},
		CreatedAt:     at.Add(-time.Hour),
	}
	s.RecordNotification(cfg)
	other := cfg
	other.ID = "t2:start"
	other.ScheduledTime = at.Add(time.Hour)
	s.RecordNotification(other)

	pending, err := s.ListNotifications(ctx, true)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "t1:start" {
		t.Fatalf("unexpected pending list: %+v", pending)
	}
	if a, ok := pending[0].Action("snooze"); !ok || a.Payload["minutes"] != "5" {
		t.Errorf("actions did not round trip: %+v", pending[0].Actions)
	}

	cfg.Delivered = true
	cfg.State = models.StateDelivered
	s.RecordNotification(cfg)

	pending, _ = s.ListNotifications(ctx, true)
	if len(pending) != 1 || pending[0].ID != "t2:start" {
		t.Errorf("delivered notification still pending: %+v", pending)
	}
	all, _ := s.ListNotifications(ctx, false)
	if len(all) != 2 || !all[0].Delivered {
		t.Errorf("history not retained: %+v", all)
	}
}

func TestCompletions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	recs := []models.CompletionRecord{
		{TaskID: "t1", TaskName: "Essay", Date: "2024-03-15", Status: models.StatusCompleted, ActualDurationMin: 60},
		{TaskID: "t2", TaskName: "Project", Date: "2024-03-16", Status: models.StatusPartiallyCompleted, ActualDurationMin: 30, RemainingMin: 90},
	}
	for _, r := range recs {
		if err := s.SaveCompletion(ctx, r); err != nil {
			t.Fatalf("SaveCompletion failed: %v", err)
		}
	}

	day, err := s.ListCompletions(ctx, "2024-03-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 || day[0].RemainingMin != 90 || day[0].Status != models.StatusPartiallyCompleted {
		t.Errorf("unexpected completions: %+v", day)
	}
	all, _ := s.ListCompletions(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected 2 completions, got %d", len(all))
	}

	latest, err := s.LatestCompletion(ctx, "t2")
	if err != nil {
		t.Fatalf("LatestCompletion failed: %v", err)
	}
	if latest.TaskName != "Project" || latest.Status != models.StatusPartiallyCompleted {
		t.Errorf("latest completion = %+v", latest)
	}
	if _, err := s.LatestCompletion(ctx, "t3"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("LatestCompletion(missing) error = %v", err)
	}
}
