package models

import (
	"errors"
	"fmt"
	"time"
)

type CompletionStatus string

const (
	StatusCompleted          CompletionStatus = "completed"
	StatusPartiallyCompleted CompletionStatus = "partially_completed"
	StatusNotCompleted       CompletionStatus = "not_completed"
)

func ParseCompletionStatus(s string) (CompletionStatus, error) {
	switch CompletionStatus(s) {
	case StatusCompleted, StatusPartiallyCompleted, StatusNotCompleted:
		return CompletionStatus(s), nil
	default:
		return "", fmt.Errorf("invalid completion status %q", s)
	}
}

// TaskCompletionData is an outcome report consumed once by the completion handler.
type TaskCompletionData struct {
	TaskID            string           `json:"task_id"`
	Status            CompletionStatus `json:"status"`
	ActualDurationMin *int             `json:"actual_duration_minutes,omitempty"`
	RemainingMin      *int             `json:"remaining_minutes,omitempty"`
	Progress          *int             `json:"progress,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Reason            string           `json:"reason,omitempty"`
}

func (d TaskCompletionData) Validate() error {
	if d.TaskID == "" {
		return errors.New("task_id is required")
	}
	if _, err := ParseCompletionStatus(string(d.Status)); err != nil {
		return err
	}
	for name, v := range map[string]*int{
		"actual_duration_minutes": d.ActualDurationMin,
		"remaining_minutes":       d.RemainingMin,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// CompletionRecord is the analytics row written for every handled outcome.
type CompletionRecord struct {
	ID                string           `json:"id"`
	TaskID            string           `json:"task_id"`
	TaskName          string           `json:"task_name"`
	Date              string           `json:"date"` // YYYY-MM-DD format
	Status            CompletionStatus `json:"status"`
	ActualDurationMin int              `json:"actual_duration_minutes"`
	RemainingMin      int              `json:"remaining_minutes"`
	Notes             string           `json:"notes,omitempty"`
	RecordedAt        time.Time        `json:"recorded_at"`
}

// IncompleteRecord is the row migrated into tomorrow's incomplete sheet.
type IncompleteRecord struct {
	Name              string        `json:"name"`
	PriorityLabel     PriorityLabel `json:"priority"`
	RemainingDuration int           `json:"remaining_duration"`
	OriginalDuration  int           `json:"original_duration"`
	Progress          int           `json:"progress"`
	SourceDate        string        `json:"source_date"`
	Targets           []string      `json:"targets"`
	Reason            string        `json:"reason,omitempty"`
}
