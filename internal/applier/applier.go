package applier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/storage"
	"github.com/julianstephens/dayplan/internal/utils"
)

// Notifier is the slice of the timer engine the applier arms.
type Notifier interface {
	ScheduleTaskStartNotification(taskID, name string, start time.Time) models.NotificationConfig
	ScheduleTaskEndNotification(taskID, name string, end time.Time) models.NotificationConfig
	CancelTask(taskID string)
}

type ScheduleStore interface {
	SaveSchedule(ctx context.Context, id string, payload models.SchedulePayload) error
}

// Failure is one external write that did not go through.
type Failure struct {
	TaskID string `json:"task_id"`
	Op     string `json:"op"`
	Err    string `json:"error"`
}

type Result struct {
	CandidateID string                 `json:"candidate_id"`
	Events      int                    `json:"events"`
	Tracked     int                    `json:"tracked"`
	Armed       int                    `json:"armed"`
	Cancelled   int                    `json:"cancelled"`
	Failures    []Failure              `json:"failures,omitempty"`
	Payload     models.SchedulePayload `json:"payload"`
}

type Applier struct {
	Events   storage.EventStore
	Notifier Notifier
	Store    ScheduleStore
	Current  *CurrentSchedule
	// Backup snapshots the store before the schedule is replaced. Optional.
	Backup func() (string, error)

	mu sync.Mutex
}

func New(events storage.EventStore, notifier Notifier, store ScheduleStore) *Applier {
	return &Applier{
		Events:   events,
		Notifier: notifier,
		Store:    store,
		Current:  &CurrentSchedule{},
	}
}

// Apply publishes a candidate: calendar events for the placed flexible tasks,
// a tracked task per task, start and end notifications for every placed task.
// External failures are collected in the result and never stop arming. The
// payload is stored, then replaces the current schedule. Applying a schedule
// again leaves reminders of unmoved tasks as they are.
func (a *Applier) Apply(ctx context.Context, cand models.ScheduleCandidate) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	payload := cand.Payload.Clone()
	payload.SortTasks()
	res := Result{CandidateID: cand.ID}
	fail := func(taskID, op string, err error) {
		logger.Warn("Apply step failed", "task", taskID, "op", op, "error", err)
		res.Failures = append(res.Failures, Failure{TaskID: taskID, Op: op, Err: err.Error()})
	}

	for _, t := range payload.Tasks {
		if t.IsResolved() && !t.IsFixed && a.Events != nil {
			_, err := a.Events.CreateEvent(ctx, models.Event{
				TaskID:      t.ID,
				Name:        t.Name,
				Description: describe(t),
				Start:       *t.Start,
				End:         *t.End,
			})
			if err != nil {
				fail(t.ID, "event", err)
			} else {
				res.Events++
			}
		}

		if a.Events != nil {
			_, err := a.Events.CreateTrackedTask(ctx, models.TrackedTask{
				TaskID: t.ID,
				Name:   t.Name,
				Notes:  describe(t),
				Due:    trackedDue(t, payload),
				Status: models.TrackedOpen,
			})
			if err != nil {
				fail(t.ID, "tracked_task", err)
			} else {
				res.Tracked++
			}
		}
	}

	if a.Backup != nil {
		if path, err := a.Backup(); err != nil {
			logger.Warn("Automatic backup failed", "error", err)
		} else {
			logger.Debug("Backup taken before apply", "path", path)
		}
	}

	// Nothing is armed or swapped in until the schedule is stored.
	if a.Store != nil {
		if err := a.Store.SaveSchedule(ctx, cand.ID, payload); err != nil {
			return res, fmt.Errorf("failed to persist schedule: %w", err)
		}
	}

	if a.Notifier != nil {
		for _, t := range payload.Tasks {
			if !t.IsResolved() {
				// A task dropped from the plan keeps no reminders.
				a.Notifier.CancelTask(t.ID)
				continue
			}
			a.Notifier.ScheduleTaskStartNotification(t.ID, t.Name, *t.Start)
			a.Notifier.ScheduleTaskEndNotification(t.ID, t.Name, *t.End)
			res.Armed += 2
		}
	}

	old := a.Current.swap(payload.Clone())
	if old != nil && a.Notifier != nil {
		for _, t := range old.Tasks {
			if _, ok := payload.FindTask(t.ID); !ok {
				a.Notifier.CancelTask(t.ID)
				res.Cancelled++
			}
		}
	}

	res.Payload = payload
	logger.Info("Schedule applied", "candidate", cand.ID, "events", res.Events, "armed", res.Armed, "failures", len(res.Failures))
	return res, nil
}

func describe(t models.Task) string {
	var lines []string
	lines = append(lines, "priority: "+string(t.Metadata.PriorityLabel))
	if len(t.Targets) > 0 {
		lines = append(lines, "targets: "+strings.Join(t.Targets, ", "))
	}
	lines = append(lines, fmt.Sprintf("score: %.0f", t.PriorityScore))
	return strings.Join(lines, "\n")
}

// trackedDue is the task end; an unplaced task is due at the end of its plan
// day, or at its own deadline when that comes first.
func trackedDue(t models.Task, p models.SchedulePayload) time.Time {
	if t.End != nil {
		return *t.End
	}
	loc, err := utils.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.Local
	}
	day, err := utils.ParseDateInLocation(p.Date, loc)
	if err != nil {
		day = utils.StartOfDay(time.Now().In(loc))
	}
	eod := day.Add(24*time.Hour - time.Minute)
	if t.Due != nil && t.Due.Before(eod) {
		return *t.Due
	}
	return eod
}
