package models

import "time"

type NotificationKind string

const (
	NotificationTaskStart      NotificationKind = "task_start"
	NotificationTaskEnd        NotificationKind = "task_end"
	NotificationReminder       NotificationKind = "reminder"
	NotificationScheduleUpdate NotificationKind = "schedule_update"
	NotificationSystem         NotificationKind = "system"
)

type ActionKind string

const (
	ActionSnooze     ActionKind = "snooze"
	ActionComplete   ActionKind = "complete"
	ActionReschedule ActionKind = "reschedule"
	ActionCancel     ActionKind = "cancel"
)

type NotificationState string

const (
	StatePending   NotificationState = "pending"
	StateSnoozed   NotificationState = "snoozed"
	StateDelivered NotificationState = "delivered"
	StateCancelled NotificationState = "cancelled"
)

type NotificationAction struct {
	ID      string            `json:"id"`
	Label   string            `json:"label"`
	Kind    ActionKind        `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// NotificationConfig is one scheduled lifecycle event. TaskID is a lookup
// reference only.
type NotificationConfig struct {
	ID            string               `json:"id"`
	Kind          NotificationKind     `json:"kind"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	TaskID        string               `json:"task_id,omitempty"`
	ScheduledTime time.Time            `json:"scheduled_time"`
	Delivered     bool                 `json:"delivered"`
	State         NotificationState    `json:"state"`
	Actions       []NotificationAction `json:"actions,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Action returns the action registered under id.
func (n NotificationConfig) Action(id string) (NotificationAction, bool) {
	for _, a := range n.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return NotificationAction{}, false
}

func (n NotificationConfig) Clone() NotificationConfig {
	c := n
	c.Actions = make([]NotificationAction, len(n.Actions))
	for i, a := range n.Actions {
		c.Actions[i] = a
		if a.Payload != nil {
			c.Actions[i].Payload = make(map[string]string, len(a.Payload))
			for k, v := range a.Payload {
				c.Actions[i].Payload[k] = v
			}
		}
	}
	return c
}
