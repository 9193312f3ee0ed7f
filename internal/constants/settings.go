package constants

const (
	// General Settings
	SettingDayStart          = "day_start"
	SettingDayEnd            = "day_end"
	SettingBreakMin          = "break_min"
	SettingMaxConsecutiveMin = "max_consecutive_min"
	SettingCandidateCount    = "candidate_count"
	SettingTimezone          = "timezone"
	SettingStartOffsetMin    = "start_offset_min"
	SettingSnoozeMin         = "snooze_min"
	SettingUserID            = "user_id"

	// Default Settings Values
	DefaultDayStart          = "08:00"
	DefaultDayEnd            = "18:00"
	DefaultBreakMin          = 15
	DefaultMaxConsecutiveMin = 120
	DefaultCandidateCount    = 3
	DefaultStartOffsetMin    = 5
	DefaultSnoozeMin         = 5
	DefaultForcedBreakMin    = 15
	DefaultTaskDurationMin   = 60
	DefaultUserID            = "local"
	DefaultTimezone          = "Local" // Use system local timezone by default
)
