package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

const notificationColumns = "id, kind, title, message, task_id, scheduled_time, delivered, state, actions, created_at"

// RecordNotification persists a state change of the timer engine. Failures are
// logged; the engine never waits on storage.
func (s *Store) RecordNotification(cfg models.NotificationConfig) {
	if err := s.SaveNotification(context.Background(), cfg); err != nil {
		logger.Warn("Failed to record notification", "id", cfg.ID, "state", cfg.State, "error", err)
	}
}

func (s *Store) SaveNotification(ctx context.Context, cfg models.NotificationConfig) error {
	actions, err := json.Marshal(cfg.Actions)
	if err != nil {
		return err
	}
	q := "INSERT INTO notifications (" + notificationColumns + ", updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (id) DO UPDATE SET title = excluded.title, message = excluded.message, " +
		"scheduled_time = excluded.scheduled_time, delivered = excluded.delivered, state = excluded.state, " +
		"actions = excluded.actions, updated_at = excluded.updated_at"
	_, err = s.exec(ctx, q, cfg.ID, string(cfg.Kind), cfg.Title, cfg.Message, cfg.TaskID,
		formatTime(cfg.ScheduledTime), boolToInt(cfg.Delivered), string(cfg.State), string(actions),
		formatTime(cfg.CreatedAt), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", cfg.ID, err)
	}
	return nil
}

// ListNotifications returns notifications ordered by fire time. pendingOnly
// keeps the undelivered ones still waiting to fire.
func (s *Store) ListNotifications(ctx context.Context, pendingOnly bool) ([]models.NotificationConfig, error) {
	q := "SELECT " + notificationColumns + " FROM notifications"
	var args []any
	if pendingOnly {
		q += " WHERE delivered = 0 AND state IN (?, ?)"
		args = append(args, string(models.StatePending), string(models.StateSnoozed))
	}
	q += " ORDER BY scheduled_time, id"

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.NotificationConfig
	for rows.Next() {
		var cfg models.NotificationConfig
		var kind, state, actions, scheduled, created string
		var delivered int
		if err := rows.Scan(&cfg.ID, &kind, &cfg.Title, &cfg.Message, &cfg.TaskID,
			&scheduled, &delivered, &state, &actions, &created); err != nil {
			return nil, err
		}
		cfg.Kind = models.NotificationKind(kind)
		cfg.State = models.NotificationState(state)
		cfg.Delivered = delivered != 0
		if err := json.Unmarshal([]byte(actions), &cfg.Actions); err != nil {
			return nil, fmt.Errorf("failed to decode actions of %s: %w", cfg.ID, err)
		}
		if cfg.ScheduledTime, err = parseTime(scheduled); err != nil {
			return nil, err
		}
		if cfg.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
