package storage

import (
	"context"
	"time"

	"github.com/julianstephens/dayplan/internal/models"
)

// SheetSource is the tabular data source holding the fixed, priority and
// incomplete sheets. Rows are addressed by their 0-based position.
type SheetSource interface {
	ReadRows(ctx context.Context, sheet string) ([]models.Row, error)
	AppendRow(ctx context.Context, sheet string, row models.Row) error
	UpdateRow(ctx context.Context, sheet string, index int, row models.Row) error
	// DeleteRow is not supported by any source and returns errors.ErrUnsupported.
	DeleteRow(ctx context.Context, sheet string, index int) error
}

// EventStore is the external calendar and task tracker. Both creators upsert
// by task ID so re-applying a schedule never duplicates.
type EventStore interface {
	CreateEvent(ctx context.Context, ev models.Event) (models.Event, error)
	CreateTrackedTask(ctx context.Context, tt models.TrackedTask) (models.TrackedTask, error)
	ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	SheetSource
	EventStore

	// Candidates and applied schedules
	SaveCandidates(ctx context.Context, cands []models.ScheduleCandidate) error
	GetCandidate(ctx context.Context, id string) (models.ScheduleCandidate, error)
	ListCandidates(ctx context.Context, date string) ([]models.ScheduleCandidate, error)
	SaveSchedule(ctx context.Context, id string, payload models.SchedulePayload) error
	// LatestSchedule returns errors.ErrNotFound when nothing was applied yet.
	LatestSchedule(ctx context.Context) (models.SchedulePayload, error)

	// Notifications
	RecordNotification(cfg models.NotificationConfig)
	SaveNotification(ctx context.Context, cfg models.NotificationConfig) error
	ListNotifications(ctx context.Context, pendingOnly bool) ([]models.NotificationConfig, error)

	// Completions
	SaveCompletion(ctx context.Context, rec models.CompletionRecord) error
	ListCompletions(ctx context.Context, date string) ([]models.CompletionRecord, error)
	LatestCompletion(ctx context.Context, taskID string) (models.CompletionRecord, error)

	// Utils
	GetConfigPath() string
}
