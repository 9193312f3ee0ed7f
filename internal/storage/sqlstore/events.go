package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
)

const eventColumns = "id, task_id, name, description, start_time, end_time, updated_at"

// CreateEvent upserts by task ID when the event belongs to a task, by event ID
// otherwise. The stored row is returned.
func (s *Store) CreateEvent(ctx context.Context, ev models.Event) (models.Event, error) {
	if !ev.End.After(ev.Start) {
		return models.Event{}, fmt.Errorf("event %q: end must be after start", ev.Name)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.UpdatedAt = s.now()

	conflictTarget := "id"
	var taskID sql.NullString
	if ev.TaskID != "" {
		conflictTarget = "task_id"
		taskID = sql.NullString{String: ev.TaskID, Valid: true}
	}

	q := "INSERT INTO events (" + eventColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (" + conflictTarget + ") DO UPDATE SET name = excluded.name, description = excluded.description, " +
		"start_time = excluded.start_time, end_time = excluded.end_time, updated_at = excluded.updated_at"
	if _, err := s.exec(ctx, q, ev.ID, taskID, ev.Name, ev.Description,
		formatTime(ev.Start), formatTime(ev.End), formatTime(ev.UpdatedAt)); err != nil {
		return models.Event{}, fmt.Errorf("failed to save event %q: %w", ev.Name, err)
	}

	if ev.TaskID != "" {
		return s.eventBy(ctx, "task_id", ev.TaskID)
	}
	return s.eventBy(ctx, "id", ev.ID)
}

func (s *Store) eventBy(ctx context.Context, column, value string) (models.Event, error) {
	row := s.queryRow(ctx, "SELECT "+eventColumns+" FROM events WHERE "+column+" = ?", value)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("event %s: %w", value, apperrors.ErrNotFound)
	}
	return ev, err
}

// ListEvents returns the events overlapping [start, end), ordered by start.
func (s *Store) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	rows, err := s.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE start_time < ? AND end_time > ? ORDER BY start_time, id",
		formatTime(end), formatTime(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (models.Event, error) {
	var ev models.Event
	var taskID sql.NullString
	var start, end, updated string
	if err := sc.Scan(&ev.ID, &taskID, &ev.Name, &ev.Description, &start, &end, &updated); err != nil {
		return models.Event{}, err
	}
	ev.TaskID = taskID.String
	var err error
	if ev.Start, err = parseTime(start); err != nil {
		return models.Event{}, err
	}
	if ev.End, err = parseTime(end); err != nil {
		return models.Event{}, err
	}
	if ev.UpdatedAt, err = parseTime(updated); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

const trackedColumns = "id, task_id, name, notes, due, status, updated_at"

func (s *Store) CreateTrackedTask(ctx context.Context, tt models.TrackedTask) (models.TrackedTask, error) {
	if tt.TaskID == "" {
		return models.TrackedTask{}, errors.New("tracked task requires a task id")
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	if tt.Status == "" {
		tt.Status = models.TrackedOpen
	}
	tt.UpdatedAt = s.now()

	q := "INSERT INTO tracked_tasks (" + trackedColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (task_id) DO UPDATE SET name = excluded.name, notes = excluded.notes, " +
		"due = excluded.due, updated_at = excluded.updated_at, " +
		"status = CASE WHEN tracked_tasks.status = ? THEN tracked_tasks.status ELSE excluded.status END"
	if _, err := s.exec(ctx, q, tt.ID, tt.TaskID, tt.Name, tt.Notes,
		formatTime(tt.Due), string(tt.Status), formatTime(tt.UpdatedAt), string(models.TrackedDone)); err != nil {
		return models.TrackedTask{}, fmt.Errorf("failed to save tracked task %q: %w", tt.Name, err)
	}
	return s.GetTrackedTask(ctx, tt.TaskID)
}

func (s *Store) GetTrackedTask(ctx context.Context, taskID string) (models.TrackedTask, error) {
	var tt models.TrackedTask
	var status, due, updated string
	err := s.queryRow(ctx, "SELECT "+trackedColumns+" FROM tracked_tasks WHERE task_id = ?", taskID).
		Scan(&tt.ID, &tt.TaskID, &tt.Name, &tt.Notes, &due, &status, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TrackedTask{}, fmt.Errorf("tracked task %s: %w", taskID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.TrackedTask{}, err
	}
	tt.Status = models.TrackedTaskStatus(status)
	if tt.Due, err = parseTime(due); err != nil {
		return models.TrackedTask{}, err
	}
	if tt.UpdatedAt, err = parseTime(updated); err != nil {
		return models.TrackedTask{}, err
	}
	return tt, nil
}

// MarkTrackedTask sets the status of the tracked task of a schedule task.
func (s *Store) MarkTrackedTask(ctx context.Context, taskID string, status models.TrackedTaskStatus) error {
	res, err := s.exec(ctx, "UPDATE tracked_tasks SET status = ?, updated_at = ? WHERE task_id = ?",
		string(status), formatTime(s.now()), taskID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tracked task %s: %w", taskID, apperrors.ErrNotFound)
	}
	return nil
}
