package models

import (
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
)

type RecurrenceType string

const (
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceNDays    RecurrenceType = "n_days"
	RecurrenceWeekdays RecurrenceType = "weekdays"
	RecurrenceAdHoc    RecurrenceType = "ad_hoc"
)

type Recurrence struct {
	Type         RecurrenceType `json:"type"`
	IntervalDays int            `json:"interval_days,omitempty"`
	WeekdayMask  []time.Weekday `json:"weekday_mask,omitempty"`
	LastDone     string         `json:"last_done,omitempty"` // YYYY-MM-DD format
}

// DueOn reports whether a recurring task should be scheduled on date.
func (r Recurrence) DueOn(date time.Time) bool {
	switch r.Type {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		for _, wd := range r.WeekdayMask {
			if date.Weekday() == wd {
				return true
			}
		}
		return false
	case RecurrenceNDays:
		if r.LastDone == "" {
			return true
		}
		lastDone, err := time.ParseInLocation(constants.DateFormat, r.LastDone, date.Location())
		if err != nil {
			return false
		}
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		daysSince := int(day.Sub(lastDone).Hours() / 24)
		interval := r.IntervalDays
		if interval < 1 {
			interval = 1
		}
		return daysSince >= interval
	case RecurrenceWeekdays:
		wd := date.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	case RecurrenceAdHoc:
		return false // ad-hoc tasks are never scheduled automatically
	default:
		return false
	}
}
