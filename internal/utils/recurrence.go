package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/dayplan/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday parses a full or abbreviated English weekday name.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// ParseWeekdays parses a comma-separated list of weekday names.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		wd, ok := ParseWeekday(part)
		if !ok {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no weekdays given")
	}
	return out, nil
}

// ParseRecurrence parses the recurrence column of the priority sheet.
// Accepted forms: "daily", "weekdays", "ad_hoc", "weekly:mon,wed" and
// "every:3" (every N days).
func ParseRecurrence(s, lastDone string) (*models.Recurrence, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}

	kind, arg, _ := strings.Cut(s, ":")
	kind = strings.TrimSpace(kind)
	arg = strings.TrimSpace(arg)

	r := &models.Recurrence{LastDone: strings.TrimSpace(lastDone)}
	switch kind {
	case "daily":
		r.Type = models.RecurrenceDaily
	case "weekdays":
		r.Type = models.RecurrenceWeekdays
	case "ad_hoc", "adhoc":
		r.Type = models.RecurrenceAdHoc
	case "weekly":
		days, err := ParseWeekdays(arg)
		if err != nil {
			return nil, err
		}
		r.Type = models.RecurrenceWeekly
		r.WeekdayMask = days
	case "every", "n_days":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid interval %q", arg)
		}
		r.Type = models.RecurrenceNDays
		r.IntervalDays = n
	default:
		return nil, fmt.Errorf("unknown recurrence %q", s)
	}
	return r, nil
}
