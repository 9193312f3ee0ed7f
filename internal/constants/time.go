package constants

import "time"

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// StartReminderOffset is how long before a task starts its reminder fires.
	StartReminderOffset = 5 * time.Minute

	// FeedbackDelay keeps completion feedback from racing the completion UI transition.
	FeedbackDelay = 2 * time.Second
)
