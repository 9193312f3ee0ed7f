package models

import (
	"strings"
	"time"
)

type TaskKind string

const (
	TaskKindFixed      TaskKind = "fixed"
	TaskKindFlexible   TaskKind = "flexible"
	TaskKindIncomplete TaskKind = "incomplete"
	TaskKindRecurring  TaskKind = "recurring"
)

// ReschedulePolicy determines what the generator and the completion handler may
// do with a task under conflict or partial completion.
type ReschedulePolicy string

const (
	PolicyPush  ReschedulePolicy = "push"
	PolicySplit ReschedulePolicy = "split"
	PolicyDrop  ReschedulePolicy = "drop"
)

type TaskSource string

const (
	SourceExternalSheet TaskSource = "external_sheet"
	SourceUser          TaskSource = "user"
	SourceAgent         TaskSource = "agent"
)

type PriorityLabel string

const (
	PriorityCritical PriorityLabel = "critical"
	PriorityHigh     PriorityLabel = "high"
	PriorityMedium   PriorityLabel = "medium"
	PriorityLow      PriorityLabel = "low"
)

// ParsePriorityLabel returns the label for s, ignoring case and surrounding space.
func ParsePriorityLabel(s string) (PriorityLabel, bool) {
	switch PriorityLabel(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityCritical:
		return PriorityCritical, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	default:
		return "", false
	}
}

// IsHigh reports whether unmet tasks with this label lower a candidate's score.
func (p PriorityLabel) IsHigh() bool {
	return p == PriorityCritical || p == PriorityHigh
}

type TaskMetadata struct {
	EstimatedEffort int           `json:"estimated_effort"` // 0-100
	ProgressPercent int           `json:"progress_percent"` // 0-100
	PriorityLabel   PriorityLabel `json:"priority_label,omitempty"`
}

// Carryover describes the day an incomplete task was migrated from.
type Carryover struct {
	OriginalDurationMin int    `json:"original_duration_min"`
	SourceDate          string `json:"source_date,omitempty"` // YYYY-MM-DD format
	Reason              string `json:"reason,omitempty"`
}

// Task is the atomic schedulable unit. Start and End stay nil until the task is
// placed; once resolved End-Start equals DurationMin. Due is only set for
// flexible and recurring tasks, Carryover only for incomplete tasks and
// Recurrence only for recurring tasks.
type Task struct {
	ID            string           `json:"task_id"`
	Name          string           `json:"name"`
	Kind          TaskKind         `json:"kind"`
	Start         *time.Time       `json:"start,omitempty"`
	End           *time.Time       `json:"end,omitempty"`
	DurationMin   int              `json:"duration_minutes"`
	PriorityScore float64          `json:"priority_score"`
	Targets       []string         `json:"targets"`
	IsFixed       bool             `json:"is_fixed"`
	Source        TaskSource       `json:"source"`
	Policy        ReschedulePolicy `json:"reschedule_policy"`
	Metadata      TaskMetadata     `json:"metadata"`

	Due        *time.Time  `json:"due_date,omitempty"`
	Carryover  *Carryover  `json:"carryover,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// IsResolved reports whether the task has been placed on the timeline.
func (t Task) IsResolved() bool {
	return t.Start != nil && t.End != nil
}

// Interval returns the placed interval of the task.
func (t Task) Interval() (Interval, bool) {
	if !t.IsResolved() {
		return Interval{}, false
	}
	return Interval{Start: *t.Start, End: *t.End, Label: t.Name, Ref: t.ID}, true
}

// Placed returns a copy of the task resolved to start at start.
func (t Task) Placed(start time.Time) Task {
	c := t.Clone()
	end := start.Add(time.Duration(c.DurationMin) * time.Minute)
	c.Start = &start
	c.End = &end
	return c
}

// Unplaced returns a copy of the task with its interval cleared.
func (t Task) Unplaced() Task {
	c := t.Clone()
	c.Start = nil
	c.End = nil
	return c
}

// Clone returns a deep copy so callers never share pointers or slices.
func (t Task) Clone() Task {
	c := t
	if t.Start != nil {
		s := *t.Start
		c.Start = &s
	}
	if t.End != nil {
		e := *t.End
		c.End = &e
	}
	if t.Due != nil {
		d := *t.Due
		c.Due = &d
	}
	if t.Carryover != nil {
		co := *t.Carryover
		c.Carryover = &co
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		r.WeekdayMask = append([]time.Weekday(nil), t.Recurrence.WeekdayMask...)
		c.Recurrence = &r
	}
	c.Targets = append([]string(nil), t.Targets...)
	return c
}
