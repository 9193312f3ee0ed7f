// Package timer arms, snoozes and delivers lifecycle notifications.
package timer

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

// Listener receives every delivered notification.
type Listener func(models.NotificationConfig)

// Recorder persists notification state changes. Calls arrive in the order the
// changes happened, on a single goroutine owned by the engine.
type Recorder interface {
	RecordNotification(cfg models.NotificationConfig)
}

type entry struct {
	cfg   models.NotificationConfig
	timer Timer
	gen   uint64
	// base is the time the entry was armed for, before any snooze.
	base time.Time
}

type subscriber struct {
	id int
	fn Listener
}

// Engine is the notification registry. Every mutation happens under mu; a
// delivery only counts when its generation still matches the entry.
type Engine struct {
	mu          sync.Mutex
	clock       Clock
	startOffset time.Duration
	snoozeMin   int
	entries     map[string]*entry
	subs        []subscriber
	nextSub     int

	recorder Recorder
	qmu      sync.Mutex
	queue    []models.NotificationConfig
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithStartOffset(d time.Duration) Option {
	return func(e *Engine) { e.startOffset = d }
}

func WithSnoozeMinutes(m int) Option {
	return func(e *Engine) {
		if m > 0 {
			e.snoozeMin = m
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:       RealClock(),
		startOffset: constants.StartReminderOffset,
		snoozeMin:   constants.DefaultSnoozeMin,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder != nil {
		e.wake = make(chan struct{}, 1)
		e.stop = make(chan struct{})
		e.done = make(chan struct{})
		go e.recordLoop()
	}
	return e
}

func StartID(taskID string) string { return taskID + ":start" }
func EndID(taskID string) string   { return taskID + ":end" }

// ScheduleTaskStartNotification arms the reminder that fires shortly before start.
func (e *Engine) ScheduleTaskStartNotification(taskID, name string, start time.Time) models.NotificationConfig {
	return e.armTask(models.NotificationConfig{
		ID:            StartID(taskID),
		Kind:          models.NotificationTaskStart,
		Title:         "Starting soon: " + name,
		Message:       fmt.Sprintf("%s starts at %s", name, start.Format(constants.TimeFormat)),
		TaskID:        taskID,
		ScheduledTime: start.Add(-e.startOffset),
		Actions: []models.NotificationAction{
			{
				ID:      constants.ActionSnooze,
				Label:   fmt.Sprintf("Snooze %d min", e.snoozeMin),
				Kind:    models.ActionSnooze,
				Payload: map[string]string{"minutes": strconv.Itoa(e.snoozeMin)},
			},
			{ID: constants.ActionStartNow, Label: "Start now", Kind: models.ActionCancel},
		},
	})
}

// ScheduleTaskEndNotification arms the completion prompt at end.
func (e *Engine) ScheduleTaskEndNotification(taskID, name string, end time.Time) models.NotificationConfig {
	complete := func(id, label string, status models.CompletionStatus) models.NotificationAction {
		return models.NotificationAction{
			ID:      id,
			Label:   label,
			Kind:    models.ActionComplete,
			Payload: map[string]string{"status": string(status)},
		}
	}
	return e.armTask(models.NotificationConfig{
		ID:            EndID(taskID),
		Kind:          models.NotificationTaskEnd,
		Title:         "Time's up: " + name,
		Message:       fmt.Sprintf("How did %s go?", name),
		TaskID:        taskID,
		ScheduledTime: end,
		Actions: []models.NotificationAction{
			complete(constants.ActionCompleted, "Completed", models.StatusCompleted),
			complete(constants.ActionPartiallyCompleted, "Partially completed", models.StatusPartiallyCompleted),
			complete(constants.ActionNotCompleted, "Not completed", models.StatusNotCompleted),
		},
	})
}

// ScheduleSystemNotification arms a one-off system message after delay.
func (e *Engine) ScheduleSystemNotification(title, message string, delay time.Duration) models.NotificationConfig {
	return e.Notify(models.NotificationSystem, title, message, delay)
}

// Notify arms a notification of any kind without actions.
func (e *Engine) Notify(kind models.NotificationKind, title, message string, delay time.Duration) models.NotificationConfig {
	return e.Arm(models.NotificationConfig{
		ID:            uuid.NewString(),
		Kind:          kind,
		Title:         title,
		Message:       message,
		ScheduledTime: e.clock.Now().Add(delay),
	})
}

// armTask arms a task notification unless the registry already holds it for
// the same time and it is still armed, delivered or cancelled. Re-applying a
// schedule then leaves settled reminders alone and only moves what changed.
func (e *Engine) armTask(cfg models.NotificationConfig) models.NotificationConfig {
	e.mu.Lock()
	if en, ok := e.entries[cfg.ID]; ok && en.base.Equal(cfg.ScheduledTime) &&
		(en.timer != nil || en.cfg.Delivered || en.cfg.State == models.StateCancelled) {
		out := en.cfg.Clone()
		e.mu.Unlock()
		logger.Debug("Notification unchanged, not re-armed", "id", cfg.ID, "state", out.State)
		return out
	}
	e.mu.Unlock()
	return e.Arm(cfg)
}

// Arm registers cfg for delivery at its ScheduledTime, replacing any
// outstanding timer under the same ID. Past times deliver immediately.
func (e *Engine) Arm(cfg models.NotificationConfig) models.NotificationConfig {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = e.clock.Now()
	}
	cfg.Delivered = false
	cfg.State = models.StatePending

	en, ok := e.entries[cfg.ID]
	if !ok {
		en = &entry{}
		e.entries[cfg.ID] = en
	}
	en.cfg = cfg.Clone()
	en.base = cfg.ScheduledTime
	e.armLocked(cfg.ID, en)
	logger.Debug("Notification armed", "id", cfg.ID, "kind", cfg.Kind, "at", cfg.ScheduledTime)
	return en.cfg.Clone()
}

// armLocked stops the outstanding timer, opens a new generation and starts a
// timer for the entry's scheduled time.
func (e *Engine) armLocked(id string, en *entry) {
	if en.timer != nil {
		en.timer.Stop()
	}
	en.gen++
	gen := en.gen

	delay := en.cfg.ScheduledTime.Sub(e.clock.Now())
	if delay < 0 {
		delay = 0
	}
	en.timer = e.clock.AfterFunc(delay, func() { e.deliver(id, gen) })
	e.recordLocked(en.cfg)
}

func (e *Engine) deliver(id string, gen uint64) {
	e.mu.Lock()
	en, ok := e.entries[id]
	if !ok || en.gen != gen || en.cfg.Delivered || en.cfg.State == models.StateCancelled {
		e.mu.Unlock()
		return
	}
	en.cfg.Delivered = true
	en.cfg.State = models.StateDelivered
	en.timer = nil
	cfg := en.cfg.Clone()
	e.recordLocked(cfg)

	subs := make([]subscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	logger.Info("Notification delivered", "id", id, "kind", cfg.Kind, "subscribers", len(subs))
	for _, s := range subs {
		e.notify(s, cfg)
	}
}

func (e *Engine) notify(s subscriber, cfg models.NotificationConfig) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Notification listener panicked", "subscriber", s.id, "id", cfg.ID, "panic", r)
		}
	}()
	s.fn(cfg.Clone())
}

// Snooze re-arms id for minutes after now, whether or not it was delivered.
func (e *Engine) Snooze(id string, minutes int) (models.NotificationConfig, error) {
	if minutes <= 0 {
		minutes = e.snoozeMin
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	en, err := e.activeLocked(id)
	if err != nil {
		return models.NotificationConfig{}, err
	}
	en.cfg.ScheduledTime = e.clock.Now().Add(time.Duration(minutes) * time.Minute)
	en.cfg.Delivered = false
	en.cfg.State = models.StateSnoozed
	e.recordLocked(en.cfg)
	// The re-armed timer starts a new pending cycle.
	en.cfg.State = models.StatePending
	e.armLocked(id, en)
	logger.Info("Notification snoozed", "id", id, "until", en.cfg.ScheduledTime)
	return en.cfg.Clone(), nil
}

// Reschedule moves a pending or delivered notification to at.
func (e *Engine) Reschedule(id string, at time.Time) (models.NotificationConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	en, err := e.activeLocked(id)
	if err != nil {
		return models.NotificationConfig{}, err
	}
	en.cfg.ScheduledTime = at
	en.cfg.Delivered = false
	en.cfg.State = models.StatePending
	e.armLocked(id, en)
	return en.cfg.Clone(), nil
}

func (e *Engine) activeLocked(id string) (*entry, error) {
	en, ok := e.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownNotification, id)
	}
	if en.cfg.State == models.StateCancelled {
		return nil, fmt.Errorf("notification %s is cancelled", id)
	}
	return en, nil
}

// Cancel stops a pending notification without broadcasting. Cancelling a
// delivered or already cancelled notification does nothing.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	en, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownNotification, id)
	}
	if en.cfg.Delivered || en.cfg.State == models.StateCancelled {
		return nil
	}
	if en.timer != nil {
		en.timer.Stop()
		en.timer = nil
	}
	en.gen++
	en.cfg.State = models.StateCancelled
	e.recordLocked(en.cfg.Clone())
	logger.Debug("Notification cancelled", "id", id)
	return nil
}

// CancelTask cancels the start and end notifications of a task.
func (e *Engine) CancelTask(taskID string) {
	for _, id := range []string{StartID(taskID), EndID(taskID)} {
		if err := e.Cancel(id); err != nil && !apperrors.Is(err, apperrors.ErrUnknownNotification) {
			logger.Warn("Failed to cancel notification", "id", id, "error", err)
		}
	}
}

// HandleAction dispatches a user action by its kind. Complete actions only
// settle the notification; the caller routes the outcome.
func (e *Engine) HandleAction(id, actionID string) (models.NotificationConfig, models.NotificationAction, error) {
	cfg, ok := e.Get(id)
	if !ok {
		return models.NotificationConfig{}, models.NotificationAction{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownNotification, id)
	}
	action, ok := cfg.Action(actionID)
	if !ok {
		return cfg, models.NotificationAction{}, fmt.Errorf("notification %s has no action %q", id, actionID)
	}

	var err error
	switch action.Kind {
	case models.ActionSnooze:
		minutes, _ := strconv.Atoi(action.Payload["minutes"])
		cfg, err = e.Snooze(id, minutes)
	case models.ActionReschedule:
		at, perr := time.Parse(time.RFC3339, action.Payload["at"])
		if perr != nil {
			return cfg, action, fmt.Errorf("invalid reschedule time: %w", perr)
		}
		cfg, err = e.Reschedule(id, at)
	case models.ActionCancel, models.ActionComplete:
		err = e.Cancel(id)
		cfg, _ = e.Get(id)
	default:
		err = fmt.Errorf("unsupported action kind %q", action.Kind)
	}
	if err != nil {
		return cfg, action, err
	}
	logger.Info("Notification action handled", "id", id, "action", actionID)
	return cfg, action, nil
}

// Subscribe registers fn for every future delivery. The returned function
// unregisters it and is safe to call from inside a delivery.
func (e *Engine) Subscribe(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			kept := make([]subscriber, 0, len(e.subs))
			for _, s := range e.subs {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			e.subs = kept
		})
	}
}

func (e *Engine) Get(id string) (models.NotificationConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	if !ok {
		return models.NotificationConfig{}, false
	}
	return en.cfg.Clone(), true
}

// List returns every registered notification ordered by scheduled time.
func (e *Engine) List() []models.NotificationConfig {
	e.mu.Lock()
	out := make([]models.NotificationConfig, 0, len(e.entries))
	for _, en := range e.entries {
		out = append(out, en.cfg.Clone())
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Pending returns the notifications still waiting for delivery.
func (e *Engine) Pending() []models.NotificationConfig {
	var out []models.NotificationConfig
	for _, cfg := range e.List() {
		if cfg.State == models.StatePending || cfg.State == models.StateSnoozed {
			out = append(out, cfg)
		}
	}
	return out
}

// Restore re-arms stored notifications that were neither delivered nor cancelled.
func (e *Engine) Restore(cfgs []models.NotificationConfig) int {
	n := 0
	for _, cfg := range cfgs {
		if cfg.Delivered || cfg.State == models.StateCancelled || cfg.State == models.StateDelivered {
			continue
		}
		e.Arm(cfg)
		n++
	}
	logger.Info("Restored notifications", "count", n)
	return n
}

// Track registers a stored notification as it is, without arming it. Actions
// on a notification delivered by another process go through here. An ID the
// engine already knows is left alone.
func (e *Engine) Track(cfg models.NotificationConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.entries[cfg.ID]; ok {
		return
	}
	e.entries[cfg.ID] = &entry{cfg: cfg.Clone(), base: cfg.ScheduledTime}
}

// Cleanup discards every timer and the whole registry.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, en := range e.entries {
		if en.timer != nil {
			en.timer.Stop()
		}
	}
	e.entries = make(map[string]*entry)
}

// Close runs Cleanup and waits until every recorded change has been written.
func (e *Engine) Close() {
	e.Cleanup()
	if e.recorder == nil {
		return
	}
	e.qmu.Lock()
	if e.closed {
		e.qmu.Unlock()
		return
	}
	e.closed = true
	e.qmu.Unlock()
	close(e.stop)
	<-e.done
}

func (e *Engine) recordLocked(cfg models.NotificationConfig) {
	if e.recorder == nil {
		return
	}
	e.qmu.Lock()
	if e.closed {
		e.qmu.Unlock()
		return
	}
	e.queue = append(e.queue, cfg.Clone())
	e.qmu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) recordLoop() {
	defer close(e.done)
	for {
		select {
		case <-e.wake:
			e.drain()
		case <-e.stop:
			e.drain()
			return
		}
	}
}

func (e *Engine) drain() {
	e.qmu.Lock()
	batch := e.queue
	e.queue = nil
	e.qmu.Unlock()
	for _, cfg := range batch {
		e.recorder.RecordNotification(cfg)
	}
}
