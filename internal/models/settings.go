package models

// Settings represents the runtime scheduling settings
type Settings struct {
	DayStart          string `json:"day_start"`           // start of working hours, e.g. "08:00"
	DayEnd            string `json:"day_end"`             // end of working hours, e.g. "18:00"
	BreakMin          int    `json:"break_min"`           // break between consecutive tasks in minutes
	MaxConsecutiveMin int    `json:"max_consecutive_min"` // work minutes allowed before a forced break
	CandidateCount    int    `json:"candidate_count"`     // number of candidates per generation
	Timezone          string `json:"timezone"`            // IANA timezone name, or "Local"
	StartOffsetMin    int    `json:"start_offset_min"`    // minutes before start the reminder fires
	SnoozeMin         int    `json:"snooze_min"`          // default snooze length in minutes
	UserID            string `json:"user_id"`
}
