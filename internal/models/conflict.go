package models

import "fmt"

type ConflictKind string

const (
	ConflictTaskTask     ConflictKind = "task_task"
	ConflictTaskExternal ConflictKind = "task_external"
	ConflictUnscheduled  ConflictKind = "unscheduled"
)

// Conflict is a detected collision between two timeline items, or a task the
// generator could not place. Displace names the movable party and is empty when
// neither side may move.
type Conflict struct {
	Kind     ConflictKind `json:"kind"`
	A        string       `json:"a"`
	AName    string       `json:"a_name"`
	B        string       `json:"b,omitempty"`
	BName    string       `json:"b_name,omitempty"`
	Window   Interval     `json:"window"`
	Displace string       `json:"displace,omitempty"`
}

func (c Conflict) String() string {
	switch c.Kind {
	case ConflictUnscheduled:
		return fmt.Sprintf("%q could not be scheduled", c.AName)
	case ConflictTaskExternal:
		return fmt.Sprintf("%q overlaps external event %q %s", c.AName, c.BName, c.Window)
	default:
		return fmt.Sprintf("%q overlaps %q %s", c.AName, c.BName, c.Window)
	}
}
