package models

import (
	"sort"
	"time"
)

// SchedulePayload is one full day's plan.
type SchedulePayload struct {
	UserID         string    `json:"user_id"`
	Date           string    `json:"date"` // YYYY-MM-DD format
	Timezone       string    `json:"timezone"`
	Tasks          []Task    `json:"tasks"`
	GeneratedAt    time.Time `json:"generated_at"`
	AgentVersion   string    `json:"agent_version"`
	Explainability string    `json:"explainability"`
}

// SortTasks orders tasks by start time. Unresolved tasks go last, ties break on ID.
func (p *SchedulePayload) SortTasks() {
	sort.SliceStable(p.Tasks, func(i, j int) bool {
		a, b := p.Tasks[i], p.Tasks[j]
		switch {
		case a.IsResolved() && !b.IsResolved():
			return true
		case !a.IsResolved() && b.IsResolved():
			return false
		case a.IsResolved() && b.IsResolved() && !a.Start.Equal(*b.Start):
			return a.Start.Before(*b.Start)
		}
		return a.ID < b.ID
	})
}

func (p SchedulePayload) FindTask(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Clone returns a deep copy of the payload.
func (p SchedulePayload) Clone() SchedulePayload {
	c := p
	c.Tasks = make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}

// Unscheduled returns the tasks the plan could not place.
func (p SchedulePayload) Unscheduled() []Task {
	var out []Task
	for _, t := range p.Tasks {
		if !t.IsResolved() {
			out = append(out, t)
		}
	}
	return out
}

// ScheduleCandidate wraps a payload with its ranking data. Conflicts holds the
// rendered form of Details.
type ScheduleCandidate struct {
	ID          string          `json:"id"`
	Score       float64         `json:"score"`
	Explanation string          `json:"explanation"`
	Conflicts   []string        `json:"conflicts"`
	Details     []Conflict      `json:"details,omitempty"`
	Strategy    string          `json:"strategy"`
	Payload     SchedulePayload `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}
