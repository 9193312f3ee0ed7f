package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
)

// Interval is a half-open [Start, End) span on the timeline. Ref identifies the
// task or external event that owns it.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
	Ref   string    `json:"ref,omitempty"`
}

// Minutes returns the length of the interval in whole minutes.
func (i Interval) Minutes() int {
	return int(i.End.Sub(i.Start).Minutes())
}

// Overlaps reports whether the two half-open intervals share any instant.
// Zero-length intervals never overlap anything.
func (i Interval) Overlaps(o Interval) bool {
	if !i.End.After(i.Start) || !o.End.After(o.Start) {
		return false
	}
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// Overlap returns the shared window of two overlapping intervals.
func (i Interval) Overlap(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	start := i.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := i.End
	if o.End.Before(end) {
		end = o.End
	}
	return Interval{Start: start, End: end}, true
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", i.Start.Format(constants.TimeFormat), i.End.Format(constants.TimeFormat))
}
