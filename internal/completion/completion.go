// Package completion records task outcomes and migrates unfinished work.
package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dayplan/internal/constants"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

var ErrUnknownTask = apperrors.ErrUnknownTask

// SheetAppender receives migrated rows.
type SheetAppender interface {
	AppendRow(ctx context.Context, sheet string, row models.Row) error
}

// Recorder keeps completion history for analytics. A task with a recorded
// outcome is not handled again.
type Recorder interface {
	SaveCompletion(ctx context.Context, rec models.CompletionRecord) error
	LatestCompletion(ctx context.Context, taskID string) (models.CompletionRecord, error)
}

// Notifier schedules the feedback message.
type Notifier interface {
	ScheduleSystemNotification(title, message string, delay time.Duration) models.NotificationConfig
}

// TaskLookup resolves a task of the current schedule.
type TaskLookup func(taskID string) (models.Task, bool)

type Handler struct {
	Sheets   SheetAppender
	Recorder Recorder
	Notifier Notifier
	Lookup   TaskLookup
	Location *time.Location
	Now      func() time.Time

	mu sync.Mutex
}

func (h *Handler) now() time.Time {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if h.Location != nil {
		now = now.In(h.Location)
	}
	return now
}

// HandleCompletion dispatches on the outcome status. It returns the record
// migrated to the incomplete sheet, or nil when nothing was migrated. A second
// outcome for the same task fails with ErrAlreadyCompleted.
func (h *Handler) HandleCompletion(ctx context.Context, data models.TaskCompletionData) (*models.IncompleteRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid completion: %w", err)
	}
	if h.Lookup == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, data.TaskID)
	}
	task, ok := h.Lookup(data.TaskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, data.TaskID)
	}
	if err := h.checkUnhandled(ctx, task.ID); err != nil {
		return nil, err
	}

	now := h.now()
	status := data.Status
	if status == models.StatusPartiallyCompleted && (data.RemainingMin == nil || *data.RemainingMin == 0) {
		logger.Debug("Partial completion without remaining work, treating as completed", "task_id", task.ID)
		status = models.StatusCompleted
	}

	var rec *models.IncompleteRecord
	switch status {
	case models.StatusCompleted:
	case models.StatusPartiallyCompleted:
		remaining := *data.RemainingMin
		rec = newRecord(task, now, data.Reason)
		rec.RemainingDuration = remaining
		rec.OriginalDuration = valueOr(data.ActualDurationMin, remaining)
		rec.Progress = clampPercent(valueOr(data.Progress, constants.DefaultPartialProgress))
	case models.StatusNotCompleted:
		rec = newRecord(task, now, data.Reason)
		rec.RemainingDuration = task.DurationMin
		rec.OriginalDuration = task.DurationMin
		if task.Carryover != nil && task.Carryover.OriginalDurationMin > 0 {
			rec.OriginalDuration = task.Carryover.OriginalDurationMin
		}
		rec.Progress = clampPercent(valueOr(data.Progress, 0))
	}

	h.record(ctx, task, data, status, now)
	if rec != nil {
		h.migrate(ctx, *rec)
	}
	h.feedback(task, status, rec, data)

	logger.Info("Task completion handled", "task_id", task.ID, "status", status, "migrated", rec != nil)
	return rec, nil
}

func (h *Handler) checkUnhandled(ctx context.Context, taskID string) error {
	if h.Recorder == nil {
		return nil
	}
	prev, err := h.Recorder.LatestCompletion(ctx, taskID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s was %s", apperrors.ErrAlreadyCompleted, taskID, prev.Status)
	case apperrors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check completion history: %w", err)
	}
}

func newRecord(task models.Task, now time.Time, reason string) *models.IncompleteRecord {
	label := task.Metadata.PriorityLabel
	if label == "" {
		label = models.PriorityMedium
	}
	return &models.IncompleteRecord{
		Name:          task.Name,
		PriorityLabel: label,
		SourceDate:    now.Format(constants.DateFormat),
		Targets:       append([]string(nil), task.Targets...),
		Reason:        reason,
	}
}

func (h *Handler) record(ctx context.Context, task models.Task, data models.TaskCompletionData, status models.CompletionStatus, now time.Time) {
	if h.Recorder == nil {
		return
	}
	rec := models.CompletionRecord{
		ID:                uuid.NewString(),
		TaskID:            task.ID,
		TaskName:          task.Name,
		Date:              now.Format(constants.DateFormat),
		Status:            status,
		ActualDurationMin: valueOr(data.ActualDurationMin, task.DurationMin),
		RemainingMin:      valueOr(data.RemainingMin, 0),
		Notes:             data.Notes,
		RecordedAt:        now,
	}
	if status == models.StatusNotCompleted {
		rec.ActualDurationMin = valueOr(data.ActualDurationMin, 0)
	}
	if err := h.Recorder.SaveCompletion(ctx, rec); err != nil {
		logger.Error("Failed to record completion", "task_id", task.ID, "error", err)
	}
}

func (h *Handler) migrate(ctx context.Context, rec models.IncompleteRecord) {
	if h.Sheets == nil {
		logger.Warn("No sheet source configured, migration skipped", "task", rec.Name)
		return
	}
	if err := h.Sheets.AppendRow(ctx, constants.SheetIncomplete, rec.ToRow()); err != nil {
		logger.Error("Failed to migrate incomplete task", "task", rec.Name, "error", err)
	}
}

func (h *Handler) feedback(task models.Task, status models.CompletionStatus, rec *models.IncompleteRecord, data models.TaskCompletionData) {
	if h.Notifier == nil {
		return
	}
	var title, msg string
	switch status {
	case models.StatusCompleted:
		title = "Task completed"
		msg = fmt.Sprintf("Nice work! %q is done (%d min).", task.Name, valueOr(data.ActualDurationMin, task.DurationMin))
	case models.StatusPartiallyCompleted:
		title = "Progress saved"
		msg = fmt.Sprintf("%q: %d min moved to tomorrow at %d%% progress.", task.Name, rec.RemainingDuration, rec.Progress)
	default:
		title = "Moved to tomorrow"
		msg = fmt.Sprintf("%q (%d min) moved to tomorrow's list.", task.Name, rec.RemainingDuration)
	}
	h.Notifier.ScheduleSystemNotification(title, msg, constants.FeedbackDelay)
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
