package models

import "time"

// Event is an entry in the external calendar. Events created by the applier
// carry the TaskID they were booked for.
type Event struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e Event) Interval() Interval {
	return Interval{Start: e.Start, End: e.End, Label: e.Name, Ref: e.ID}
}

type TrackedTaskStatus string

const (
	TrackedOpen TrackedTaskStatus = "open"
	TrackedDone TrackedTaskStatus = "done"
)

// TrackedTask mirrors a scheduled task in the external task store.
type TrackedTask struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	Name      string            `json:"name"`
	Notes     string            `json:"notes,omitempty"`
	Due       time.Time         `json:"due"`
	Status    TrackedTaskStatus `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}
