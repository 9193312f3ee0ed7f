package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
)

const completionColumns = "id, task_id, task_name, plan_date, status, actual_duration_min, remaining_min, notes, recorded_at"

func (s *Store) SaveCompletion(ctx context.Context, rec models.CompletionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = s.now()
	}
	_, err := s.exec(ctx,
		"INSERT INTO completions ("+completionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.TaskID, rec.TaskName, rec.Date, string(rec.Status),
		rec.ActualDurationMin, rec.RemainingMin, rec.Notes, formatTime(rec.RecordedAt))
	if err != nil {
		return fmt.Errorf("failed to save completion of %s: %w", rec.TaskID, err)
	}
	return nil
}

// LatestCompletion returns the last outcome recorded for a task.
func (s *Store) LatestCompletion(ctx context.Context, taskID string) (models.CompletionRecord, error) {
	recs, err := s.scanCompletions(ctx, "SELECT "+completionColumns+" FROM completions WHERE task_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1", taskID)
	if err != nil {
		return models.CompletionRecord{}, err
	}
	if len(recs) == 0 {
		return models.CompletionRecord{}, fmt.Errorf("completion of %s: %w", taskID, apperrors.ErrNotFound)
	}
	return recs[0], nil
}

// ListCompletions returns the completion history of a date, or of every date
// when date is empty.
func (s *Store) ListCompletions(ctx context.Context, date string) ([]models.CompletionRecord, error) {
	q := "SELECT " + completionColumns + " FROM completions"
	var args []any
	if date != "" {
		q += " WHERE plan_date = ?"
		args = append(args, date)
	}
	q += " ORDER BY recorded_at, id"
	return s.scanCompletions(ctx, q, args...)
}

func (s *Store) scanCompletions(ctx context.Context, q string, args ...any) ([]models.CompletionRecord, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var out []models.CompletionRecord
	for rows.Next() {
		var rec models.CompletionRecord
		var status, recorded string
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.TaskName, &rec.Date, &status,
			&rec.ActualDurationMin, &rec.RemainingMin, &rec.Notes, &recorded); err != nil {
			return nil, err
		}
		rec.Status = models.CompletionStatus(status)
		if rec.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
