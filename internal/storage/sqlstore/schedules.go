package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
)

const candidateColumns = "id, plan_date, score, strategy, explanation, conflicts, details, payload, created_at"

// SaveCandidates stores a generation result. Candidates are kept so a later
// apply can refer to them by ID.
func (s *Store) SaveCandidates(ctx context.Context, cands []models.ScheduleCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO candidates ("+candidateColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (id) DO UPDATE SET score = excluded.score, explanation = excluded.explanation, "+
			"conflicts = excluded.conflicts, details = excluded.details, payload = excluded.payload"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cands {
		conflicts, err := json.Marshal(nonNil(c.Conflicts))
		if err != nil {
			return err
		}
		details, err := json.Marshal(c.Details)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(c.Payload)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Payload.Date, c.Score, c.Strategy, c.Explanation,
			string(conflicts), string(details), string(payload), formatTime(c.CreatedAt)); err != nil {
			return fmt.Errorf("failed to save candidate %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetCandidate(ctx context.Context, id string) (models.ScheduleCandidate, error) {
	row := s.queryRow(ctx, "SELECT "+candidateColumns+" FROM candidates WHERE id = ?", id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduleCandidate{}, fmt.Errorf("candidate %s: %w", id, apperrors.ErrNotFound)
	}
	return c, err
}

// ListCandidates returns the candidates generated for a date, best first.
func (s *Store) ListCandidates(ctx context.Context, date string) ([]models.ScheduleCandidate, error) {
	rows, err := s.query(ctx,
		"SELECT "+candidateColumns+" FROM candidates WHERE plan_date = ? ORDER BY created_at DESC, score DESC, id", date)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduleCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCandidate(sc scanner) (models.ScheduleCandidate, error) {
	var c models.ScheduleCandidate
	var date, conflicts, details, payload, created string
	if err := sc.Scan(&c.ID, &date, &c.Score, &c.Strategy, &c.Explanation,
		&conflicts, &details, &payload, &created); err != nil {
		return models.ScheduleCandidate{}, err
	}
	if err := json.Unmarshal([]byte(conflicts), &c.Conflicts); err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("failed to decode conflicts of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(details), &c.Details); err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("failed to decode details of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(payload), &c.Payload); err != nil {
		return models.ScheduleCandidate{}, fmt.Errorf("failed to decode payload of %s: %w", c.ID, err)
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return models.ScheduleCandidate{}, err
	}
	return c, nil
}

// SaveSchedule records an applied payload. Applying the same id again only
// refreshes it, which also makes it the latest.
func (s *Store) SaveSchedule(ctx context.Context, id string, payload models.SchedulePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx,
		"INSERT INTO schedules (id, plan_date, payload, applied_at) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, applied_at = excluded.applied_at",
		id, payload.Date, string(data), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", id, err)
	}
	return nil
}

func (s *Store) LatestSchedule(ctx context.Context) (models.SchedulePayload, error) {
	var data string
	err := s.queryRow(ctx, "SELECT payload FROM schedules ORDER BY applied_at DESC LIMIT 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SchedulePayload{}, fmt.Errorf("schedule: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return models.SchedulePayload{}, err
	}
	var p models.SchedulePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.SchedulePayload{}, fmt.Errorf("failed to decode schedule: %w", err)
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
