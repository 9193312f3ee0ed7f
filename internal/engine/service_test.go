package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/storage/sqlite"
	"github.com/julianstephens/dayplan/internal/timer"
)

var (
	planDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	dateStr = "2024-03-15"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "dayplan.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	ctx := context.Background()
	rows := map[string][]models.Row{
		constants.SheetFixed: {
			{"name": "Standup", "day": dateStr, "start_time": "09:00", "end_time": "09:30"},
		},
		constants.SheetPriority: {
			{"name": "Essay", "priority": "high", "estimated_duration": "90", "targets": "writing"},
			{"name": "Email", "priority": "low", "estimated_duration": "30"},
		},
	}
	for sheet, rs := range rows {
		for _, r := range rs {
			if err := store.AppendRow(ctx, sheet, r); err != nil {
				t.Fatalf("AppendRow(%s) error = %v", sheet, err)
			}
		}
	}
	if _, err := store.CreateEvent(ctx, models.Event{
		ID:    "lunch",
		Name:  "Lunch",
		Start: planDay.Add(12 * time.Hour),
		End:   planDay.Add(13 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return store
}

func newService(t *testing.T, store *sqlite.Store, clock timer.Clock) *Service {
	t.Helper()
	svc, err := New(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Close)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return svc
}

func taskNamed(t *testing.T, p models.SchedulePayload, name string) models.Task {
	t.Helper()
	for _, task := range p.Tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("task %q not in schedule", name)
	return models.Task{}
}

func TestPlanDate(t *testing.T) {
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	svc := newService(t, setupStore(t), clock)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", planDay, false},
		{"today", planDay, false},
		{"tomorrow", planDay.AddDate(0, 0, 1), false},
		{"2024-04-01", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{"04/01/2024", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := svc.PlanDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PlanDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("PlanDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateStoresRankedCandidates(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	svc := newService(t, setupStore(t), clock)

	cands, err := svc.Generate(ctx, dateStr)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(cands) != constants.DefaultCandidateCount {
		t.Fatalf("Generate() returned %d candidates, want %d", len(cands), constants.DefaultCandidateCount)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[i-1].Score {
			t.Errorf("candidates not ranked: %v before %v", cands[i-1].Score, cands[i].Score)
		}
	}

	lunch := models.Interval{Start: planDay.Add(12 * time.Hour), End: planDay.Add(13 * time.Hour)}
	for _, task := range cands[0].Payload.Tasks {
		if iv, ok := task.Interval(); ok && !task.IsFixed && iv.Overlaps(lunch) {
			t.Errorf("%s placed over a busy event: %v", task.Name, iv)
		}
	}

	stored, err := svc.Candidates(ctx, dateStr)
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(stored) != len(cands) {
		t.Fatalf("Candidates() returned %d, want %d", len(stored), len(cands))
	}
	for i := range cands {
		if stored[i].ID != cands[i].ID {
			t.Errorf("stored[%d] = %s, want %s", i, stored[i].ID, cands[i].ID)
		}
	}

	// A second generation supersedes the first.
	clock.Advance(time.Minute)
	again, err := svc.Generate(ctx, dateStr)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	stored, _ = svc.Candidates(ctx, dateStr)
	if len(stored) != len(again) || stored[0].ID != again[0].ID {
		t.Errorf("Candidates() did not return the latest generation")
	}
}

func TestSelectAppliesAndArms(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)
	svc := newService(t, store, clock)

	if _, err := svc.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Select(ctx, dateStr, 9); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Select(9) error = %v, want ErrNotFound", err)
	}

	res, err := svc.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	resolved := 0
	for _, task := range res.Payload.Tasks {
		if task.IsResolved() {
			resolved++
		}
	}
	if res.Armed != 2*resolved {
		t.Errorf("Armed = %d, want %d", res.Armed, 2*resolved)
	}
	if len(res.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", res.Failures)
	}

	current, ok := svc.Current()
	if !ok || current.Date != dateStr {
		t.Fatalf("Current() = %v, %v", current.Date, ok)
	}

	busy, err := svc.Busy(ctx, planDay)
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if len(busy) != 1 || busy[0].Label != "Lunch" {
		t.Errorf("Busy() = %+v, want only the lunch event", busy)
	}
}

func TestNotificationActionCompletesTask(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)
	svc := newService(t, store, clock)

	var mu sync.Mutex
	var delivered []string
	svc.Subscribe(func(cfg models.NotificationConfig) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, cfg.ID)
	})

	if _, err := svc.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res, err := svc.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	essay := taskNamed(t, res.Payload, "Essay")
	if !essay.IsResolved() {
		t.Fatal("essay was not placed")
	}

	clock.Set(*essay.End)
	mu.Lock()
	got := append([]string(nil), delivered...)
	mu.Unlock()
	if !contains(got, timer.StartID(essay.ID)) || !contains(got, timer.EndID(essay.ID)) {
		t.Fatalf("delivered = %v, want essay start and end", got)
	}

	cfg, rec, err := svc.NotificationAction(ctx, timer.EndID(essay.ID), constants.ActionCompleted, ActionInput{})
	if err != nil {
		t.Fatalf("NotificationAction() error = %v", err)
	}
	if rec != nil {
		t.Errorf("completed task migrated: %+v", rec)
	}
	if cfg.TaskID != essay.ID {
		t.Errorf("cfg.TaskID = %s, want %s", cfg.TaskID, essay.ID)
	}

	completions, err := svc.Completions(ctx, dateStr)
	if err != nil {
		t.Fatalf("Completions() error = %v", err)
	}
	if len(completions) != 1 || completions[0].Status != models.StatusCompleted {
		t.Errorf("Completions() = %+v", completions)
	}
	tracked, err := store.GetTrackedTask(ctx, essay.ID)
	if err != nil {
		t.Fatalf("GetTrackedTask() error = %v", err)
	}
	if tracked.Status != models.TrackedDone {
		t.Errorf("tracked status = %s, want done", tracked.Status)
	}
}

func TestActionOnNotificationFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)

	first, err := New(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res, err := first.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	essay := taskNamed(t, res.Payload, "Essay")
	clock.Set(*essay.End)
	first.Close()

	second := newService(t, store, clock)
	if _, ok := second.Current(); !ok {
		t.Fatal("Start() did not restore the applied schedule")
	}

	remaining := 30
	_, rec, err := second.NotificationAction(ctx, timer.EndID(essay.ID), constants.ActionPartiallyCompleted,
		ActionInput{RemainingMin: &remaining})
	if err != nil {
		t.Fatalf("NotificationAction() error = %v", err)
	}
	if rec == nil || rec.RemainingDuration != 30 {
		t.Fatalf("migrated record = %+v, want 30 remaining minutes", rec)
	}

	rows, err := store.ReadRows(ctx, constants.SheetIncomplete)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Get(models.ColName) != "Essay" {
		t.Errorf("incomplete sheet = %+v", rows)
	}

	if _, _, err := second.NotificationAction(ctx, "missing:end", constants.ActionCompleted, ActionInput{}); !apperrors.Is(err, apperrors.ErrUnknownNotification) {
		t.Errorf("unknown notification error = %v", err)
	}
}

func TestRestoreNotifications(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)

	first, err := New(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res, err := first.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	first.Close()

	second := newService(t, store, clock)
	n, err := second.RestoreNotifications(ctx)
	if err != nil {
		t.Fatalf("RestoreNotifications() error = %v", err)
	}
	if n != res.Armed {
		t.Errorf("restored %d notifications, want %d", n, res.Armed)
	}
}

func storedNotification(t *testing.T, store *sqlite.Store, id string) models.NotificationConfig {
	t.Helper()
	cfgs, err := store.ListNotifications(context.Background(), false)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	for _, cfg := range cfgs {
		if cfg.ID == id {
			return cfg
		}
	}
	t.Fatalf("notification %s not stored", id)
	return models.NotificationConfig{}
}

func TestReapplyKeepsSettledReminders(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)

	first, err := New(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res, err := first.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	essay := taskNamed(t, res.Payload, "Essay")

	var mu sync.Mutex
	var delivered []string
	listen := func(cfg models.NotificationConfig) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, cfg.ID)
	}
	first.Subscribe(listen)

	clock.Set(essay.End.Add(time.Minute))
	if _, _, err := first.NotificationAction(ctx, timer.EndID(essay.ID), constants.ActionCompleted, ActionInput{}); err != nil {
		t.Fatalf("NotificationAction() error = %v", err)
	}

	// Same process applies the same candidate again.
	if _, err := first.Select(ctx, dateStr, 1); err != nil {
		t.Fatalf("second Select() error = %v", err)
	}
	clock.Advance(time.Second)
	first.Close()

	// And a later process does too.
	second := newService(t, store, clock)
	second.Subscribe(listen)
	if _, err := second.Select(ctx, dateStr, 1); err != nil {
		t.Fatalf("Select() in second process error = %v", err)
	}
	clock.Advance(time.Second)

	mu.Lock()
	got := append([]string(nil), delivered...)
	mu.Unlock()
	for _, id := range []string{timer.StartID(essay.ID), timer.EndID(essay.ID)} {
		n := 0
		for _, d := range got {
			if d == id {
				n++
			}
		}
		if n != 1 {
			t.Errorf("%s delivered %d times, want 1 (deliveries %v)", id, n, got)
		}
		if cfg := storedNotification(t, store, id); cfg.State != models.StateDelivered {
			t.Errorf("%s stored state = %s, want delivered", id, cfg.State)
		}
	}

	tracked, err := store.GetTrackedTask(ctx, essay.ID)
	if err != nil {
		t.Fatalf("GetTrackedTask() error = %v", err)
	}
	if tracked.Status != models.TrackedDone {
		t.Errorf("re-apply reopened tracked task: status %s", tracked.Status)
	}
}

func TestRepeatedCompletionActionMigratesOnce(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)
	svc := newService(t, store, clock)

	if _, err := svc.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	res, err := svc.Select(ctx, dateStr, 1)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	essay := taskNamed(t, res.Payload, "Essay")
	clock.Set(*essay.End)

	remaining := 30
	in := ActionInput{RemainingMin: &remaining}
	if _, rec, err := svc.NotificationAction(ctx, timer.EndID(essay.ID), constants.ActionPartiallyCompleted, in); err != nil || rec == nil {
		t.Fatalf("first action = %+v, %v", rec, err)
	}
	_, rec, err := svc.NotificationAction(ctx, timer.EndID(essay.ID), constants.ActionPartiallyCompleted, in)
	if !apperrors.Is(err, apperrors.ErrAlreadyCompleted) {
		t.Errorf("repeated action error = %v, want ErrAlreadyCompleted", err)
	}
	if rec != nil {
		t.Errorf("repeated action migrated %+v", rec)
	}
	if _, err := svc.Complete(ctx, models.TaskCompletionData{TaskID: essay.ID, Status: models.StatusNotCompleted}); !apperrors.Is(err, apperrors.ErrAlreadyCompleted) {
		t.Errorf("Complete() after action error = %v, want ErrAlreadyCompleted", err)
	}

	rows, err := store.ReadRows(ctx, constants.SheetIncomplete)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("incomplete sheet has %d rows, want 1", len(rows))
	}
}

func TestRestoreCancelsEarlierDays(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	store := setupStore(t)

	first, err := New(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := first.Select(ctx, dateStr, 1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	first.Close()

	later := timer.NewManualClock(planDay.AddDate(0, 0, 2).Add(8 * time.Hour))
	second := newService(t, store, later)
	var mu sync.Mutex
	delivered := 0
	second.Subscribe(func(models.NotificationConfig) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
	})

	n, err := second.RestoreNotifications(ctx)
	if err != nil {
		t.Fatalf("RestoreNotifications() error = %v", err)
	}
	if n != 0 {
		t.Errorf("restored %d notifications from an earlier day", n)
	}
	later.Advance(time.Hour)
	mu.Lock()
	defer mu.Unlock()
	if delivered != 0 {
		t.Errorf("%d stale notifications delivered", delivered)
	}
	pending, err := second.Notifications(ctx, true)
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d stale notifications still pending", len(pending))
	}
}

func TestModifyErrors(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewManualClock(planDay.Add(7 * time.Hour))
	svc := newService(t, setupStore(t), clock)

	if _, err := svc.Modify(ctx, "move essay after lunch"); !apperrors.Is(err, apperrors.ErrNoCurrentSchedule) {
		t.Errorf("Modify() without schedule error = %v", err)
	}

	if _, err := svc.Generate(ctx, dateStr); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Select(ctx, dateStr, 1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if _, err := svc.Modify(ctx, "move essay after lunch"); !apperrors.Is(err, apperrors.ErrReasonerUnavailable) {
		t.Errorf("Modify() without reasoner error = %v", err)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
