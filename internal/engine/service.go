// Package engine wires the scheduling components into the single service the
// CLI, the watcher and the HTTP API talk to.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/dayplan/internal/applier"
	"github.com/julianstephens/dayplan/internal/completion"
	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/normalizer"
	"github.com/julianstephens/dayplan/internal/notifier"
	"github.com/julianstephens/dayplan/internal/scheduler"
	"github.com/julianstephens/dayplan/internal/storage"
	"github.com/julianstephens/dayplan/internal/timer"
	"github.com/julianstephens/dayplan/internal/utils"
)

type Options struct {
	// Reasoner is optional. Without one every candidate comes from the greedy packer.
	Reasoner scheduler.Reasoner
	Clock    timer.Clock
	Sinks    []notifier.Sink
	// Backup runs before an applied schedule replaces the current one.
	Backup func() (string, error)
}

// ActionInput carries the optional numbers a completion action may report.
type ActionInput struct {
	ActualDurationMin *int   `json:"actual_duration_minutes,omitempty"`
	RemainingMin      *int   `json:"remaining_minutes,omitempty"`
	Progress          *int   `json:"progress,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// trackedMarker is implemented by stores that can close tracked tasks.
type trackedMarker interface {
	MarkTrackedTask(ctx context.Context, taskID string, status models.TrackedTaskStatus) error
}

type Service struct {
	store      storage.Provider
	settings   models.Settings
	loc        *time.Location
	clock      timer.Clock
	generator  *scheduler.Generator
	timers     *timer.Engine
	applier    *applier.Applier
	completion *completion.Handler
	dispatcher *notifier.Dispatcher
	unsub      func()
}

// New builds a service over an opened store.
func New(store storage.Provider, opts Options) (*Service, error) {
	settings, err := store.GetSettings()
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = models.DefaultSettings()
	}
	models.ApplyDefaultSettings(&settings)

	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = timer.RealClock()
	}

	s := &Service{
		store:    store,
		settings: settings,
		loc:      loc,
		clock:    clock,
	}

	s.timers = timer.NewEngine(
		timer.WithClock(clock),
		timer.WithStartOffset(time.Duration(settings.StartOffsetMin)*time.Minute),
		timer.WithSnoozeMinutes(settings.SnoozeMin),
		timer.WithRecorder(store),
	)

	s.generator = scheduler.New(opts.Reasoner)
	s.generator.Now = s.now

	s.applier = applier.New(store, s.timers, store)
	s.applier.Backup = opts.Backup

	s.completion = &completion.Handler{
		Sheets:   store,
		Recorder: store,
		Notifier: s.timers,
		Lookup:   s.applier.Current.FindTask,
		Location: loc,
		Now:      clock.Now,
	}

	if len(opts.Sinks) > 0 {
		s.dispatcher = notifier.NewDispatcher(opts.Sinks...)
		s.unsub = s.timers.Subscribe(s.dispatcher.Enqueue)
	}
	return s, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

func (s *Service) Settings() models.Settings { return s.settings }

func (s *Service) Location() *time.Location { return s.loc }

// Start loads the last applied schedule as the current one. The stored
// notifications of its tasks are tracked without arming, so applying it again
// does not reset reminders another process delivered or cancelled.
func (s *Service) Start(ctx context.Context) error {
	payload, err := s.store.LatestSchedule(ctx)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load current schedule: %w", err)
	}
	s.applier.Current.Restore(payload)

	cfgs, err := s.store.ListNotifications(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	tracked := 0
	for _, cfg := range cfgs {
		if cfg.TaskID == "" {
			continue
		}
		if _, ok := payload.FindTask(cfg.TaskID); ok {
			s.timers.Track(cfg)
			tracked++
		}
	}
	logger.Debug("Current schedule restored", "date", payload.Date, "tasks", len(payload.Tasks), "notifications", tracked)
	return nil
}

// RestoreNotifications re-arms the stored notifications still waiting to fire.
// Only the long-running processes call it; overdue ones from today deliver
// right away, older ones are cancelled.
func (s *Service) RestoreNotifications(ctx context.Context) (int, error) {
	cfgs, err := s.store.ListNotifications(ctx, true)
	if err != nil {
		return 0, err
	}
	today := utils.StartOfDay(s.now())
	var live []models.NotificationConfig
	for _, cfg := range cfgs {
		if cfg.ScheduledTime.Before(today) {
			cfg.State = models.StateCancelled
			if err := s.store.SaveNotification(ctx, cfg); err != nil {
				logger.Warn("Failed to cancel stale notification", "id", cfg.ID, "error", err)
			}
			continue
		}
		live = append(live, cfg)
	}
	if n := len(cfgs) - len(live); n > 0 {
		logger.Info("Cancelled notifications from earlier days", "count", n)
	}
	return s.timers.Restore(live), nil
}

// PlanDate resolves "", "today" and "tomorrow" against the configured timezone.
func (s *Service) PlanDate(date string) (time.Time, error) {
	today := utils.StartOfDay(s.now())
	switch date {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	d, err := utils.ParseDateInLocation(date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD, 'today' or 'tomorrow': %w", date, err)
	}
	return d, nil
}

// Tasks normalizes the three sheets for a plan day.
func (s *Service) Tasks(ctx context.Context, day time.Time) ([]models.Task, error) {
	rows := make(map[string][]models.Row, 3)
	for _, sheet := range []string{constants.SheetFixed, constants.SheetPriority, constants.SheetIncomplete} {
		r, err := s.store.ReadRows(ctx, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", sheet, err)
		}
		rows[sheet] = r
	}
	n := normalizer.New(day, s.loc)
	return n.NormalizeRows(rows[constants.SheetFixed], rows[constants.SheetPriority], rows[constants.SheetIncomplete]), nil
}

// Busy returns the calendar events of the day that were not booked by an
// applied schedule.
func (s *Service) Busy(ctx context.Context, day time.Time) ([]models.Interval, error) {
	events, err := s.store.ListEvents(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	var busy []models.Interval
	for _, ev := range events {
		if ev.TaskID != "" {
			continue
		}
		busy = append(busy, ev.Interval())
	}
	return busy, nil
}

// Generate produces and stores the ranked candidates for date. All candidates
// of one generation share a creation time.
func (s *Service) Generate(ctx context.Context, date string) ([]models.ScheduleCandidate, error) {
	day, err := s.PlanDate(date)
	if err != nil {
		return nil, err
	}
	tasks, err := s.Tasks(ctx, day)
	if err != nil {
		return nil, err
	}
	busy, err := s.Busy(ctx, day)
	if err != nil {
		return nil, err
	}

	start, err := utils.ClockOn(day, s.settings.DayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid day_start setting: %w", err)
	}
	end, err := utils.ClockOn(day, s.settings.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid day_end setting: %w", err)
	}

	cands := s.generator.Generate(ctx, scheduler.Request{
		Tasks:             tasks,
		Busy:              busy,
		Date:              day,
		Location:          s.loc,
		WorkingHours:      scheduler.WorkingHours{Start: start, End: end},
		BreakMin:          s.settings.BreakMin,
		MaxConsecutiveMin: s.settings.MaxConsecutiveMin,
		Count:             s.settings.CandidateCount,
		UserID:            s.settings.UserID,
	})

	created := s.now()
	for i := range cands {
		cands[i].CreatedAt = created
	}
	if err := s.store.SaveCandidates(ctx, cands); err != nil {
		return nil, fmt.Errorf("failed to save candidates: %w", err)
	}
	return cands, nil
}

// Candidates returns the latest generation for date, best first.
func (s *Service) Candidates(ctx context.Context, date string) ([]models.ScheduleCandidate, error) {
	day, err := s.PlanDate(date)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListCandidates(ctx, day.Format(constants.DateFormat))
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	latest := all[0].CreatedAt
	var out []models.ScheduleCandidate
	for _, c := range all {
		if !c.CreatedAt.Equal(latest) {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

// Select applies the rank-th (1-based) candidate of the latest generation.
func (s *Service) Select(ctx context.Context, date string, rank int) (applier.Result, error) {
	cands, err := s.Candidates(ctx, date)
	if err != nil {
		return applier.Result{}, err
	}
	if rank < 1 || rank > len(cands) {
		return applier.Result{}, fmt.Errorf("no candidate #%d, %d available: %w", rank, len(cands), apperrors.ErrNotFound)
	}
	return s.applier.Apply(ctx, cands[rank-1])
}

func (s *Service) Apply(ctx context.Context, candidateID string) (applier.Result, error) {
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return applier.Result{}, err
	}
	return s.applier.Apply(ctx, cand)
}

// Complete records an outcome. Reminders still pending for the task are
// cancelled and a finished task is closed in the tracker.
func (s *Service) Complete(ctx context.Context, data models.TaskCompletionData) (*models.IncompleteRecord, error) {
	rec, err := s.completion.HandleCompletion(ctx, data)
	if err != nil {
		return nil, err
	}
	s.timers.CancelTask(data.TaskID)
	if rec == nil {
		if m, ok := s.store.(trackedMarker); ok {
			if err := m.MarkTrackedTask(ctx, data.TaskID, models.TrackedDone); err != nil {
				logger.Warn("Failed to close tracked task", "task_id", data.TaskID, "error", err)
			}
		}
	}
	return rec, nil
}

// NotificationAction applies a user action. Completion actions are routed to
// Complete with the status the action carries.
func (s *Service) NotificationAction(ctx context.Context, id, actionID string, in ActionInput) (models.NotificationConfig, *models.IncompleteRecord, error) {
	if _, ok := s.timers.Get(id); !ok {
		if err := s.track(ctx, id); err != nil {
			return models.NotificationConfig{}, nil, err
		}
	}

	cfg, action, err := s.timers.HandleAction(id, actionID)
	if err != nil {
		return cfg, nil, err
	}
	if action.Kind != models.ActionComplete {
		return cfg, nil, nil
	}

	status, err := models.ParseCompletionStatus(action.Payload["status"])
	if err != nil {
		return cfg, nil, err
	}
	rec, err := s.Complete(ctx, models.TaskCompletionData{
		TaskID:            cfg.TaskID,
		Status:            status,
		ActualDurationMin: in.ActualDurationMin,
		RemainingMin:      in.RemainingMin,
		Progress:          in.Progress,
		Notes:             in.Notes,
	})
	return cfg, rec, err
}

// track loads a stored notification the timer engine does not hold.
func (s *Service) track(ctx context.Context, id string) error {
	cfgs, err := s.store.ListNotifications(ctx, false)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		if cfg.ID == id {
			s.timers.Track(cfg)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrUnknownNotification, id)
}

// Modify asks the reasoner to change the current schedule and stores the
// result as a candidate. It is not applied.
func (s *Service) Modify(ctx context.Context, request string) (models.ScheduleCandidate, error) {
	var current *models.SchedulePayload
	var busy []models.Interval
	if p, ok := s.applier.Current.Get(); ok {
		current = &p
		day, err := utils.ParseDateInLocation(p.Date, s.loc)
		if err != nil {
			return models.ScheduleCandidate{}, fmt.Errorf("invalid schedule date %q: %w", p.Date, err)
		}
		if busy, err = s.Busy(ctx, day); err != nil {
			return models.ScheduleCandidate{}, err
		}
	}

	cand, err := s.generator.Modify(ctx, current, request, busy)
	if err != nil {
		return models.ScheduleCandidate{}, err
	}
	if err := s.store.SaveCandidates(ctx, []models.ScheduleCandidate{cand}); err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("failed to save candidate: %w", err)
	}
	return cand, nil
}

func (s *Service) Current() (models.SchedulePayload, bool) {
	return s.applier.Current.Get()
}

// Subscribe registers fn for every delivered notification.
func (s *Service) Subscribe(fn timer.Listener) func() {
	return s.timers.Subscribe(fn)
}

// Notifications lists stored notifications, or only the pending ones.
func (s *Service) Notifications(ctx context.Context, pendingOnly bool) ([]models.NotificationConfig, error) {
	return s.store.ListNotifications(ctx, pendingOnly)
}

func (s *Service) Completions(ctx context.Context, date string) ([]models.CompletionRecord, error) {
	day, err := s.PlanDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.ListCompletions(ctx, day.Format(constants.DateFormat))
}

// Sinks names the notification sinks deliveries are fanned out to.
func (s *Service) Sinks() []string {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Sinks()
}

// Close stops the timers and flushes the recorder and the sinks. The store
// stays open.
func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.timers.Close()
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
}
