package models

import (
	"fmt"

	"github.com/julianstephens/dayplan/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{BreakMin: constants.DefaultBreakMin}

	ints := map[string]*int{
		constants.SettingBreakMin:          &settings.BreakMin,
		constants.SettingMaxConsecutiveMin: &settings.MaxConsecutiveMin,
		constants.SettingCandidateCount:    &settings.CandidateCount,
		constants.SettingStartOffsetMin:    &settings.StartOffsetMin,
		constants.SettingSnoozeMin:         &settings.SnoozeMin,
	}

	for key, value := range data {
		switch key {
		case constants.SettingDayStart:
			settings.DayStart = value
		case constants.SettingDayEnd:
			settings.DayEnd = value
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingUserID:
			settings.UserID = value
		default:
			target, ok := ints[key]
			if !ok {
				continue
			}
			if _, err := fmt.Sscanf(value, "%d", target); err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingDayStart:          settings.DayStart,
		constants.SettingDayEnd:            settings.DayEnd,
		constants.SettingBreakMin:          fmt.Sprintf("%d", settings.BreakMin),
		constants.SettingMaxConsecutiveMin: fmt.Sprintf("%d", settings.MaxConsecutiveMin),
		constants.SettingCandidateCount:    fmt.Sprintf("%d", settings.CandidateCount),
		constants.SettingTimezone:          settings.Timezone,
		constants.SettingStartOffsetMin:    fmt.Sprintf("%d", settings.StartOffsetMin),
		constants.SettingSnoozeMin:         fmt.Sprintf("%d", settings.SnoozeMin),
		constants.SettingUserID:            settings.UserID,
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.DayStart == "" {
		settings.DayStart = constants.DefaultDayStart
	}
	if settings.DayEnd == "" {
		settings.DayEnd = constants.DefaultDayEnd
	}
	if settings.BreakMin < 0 {
		settings.BreakMin = constants.DefaultBreakMin
	}
	if settings.MaxConsecutiveMin == 0 {
		settings.MaxConsecutiveMin = constants.DefaultMaxConsecutiveMin
	}
	if settings.CandidateCount == 0 {
		settings.CandidateCount = constants.DefaultCandidateCount
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.StartOffsetMin == 0 {
		settings.StartOffsetMin = constants.DefaultStartOffsetMin
	}
	if settings.SnoozeMin == 0 {
		settings.SnoozeMin = constants.DefaultSnoozeMin
	}
	if settings.UserID == "" {
		settings.UserID = constants.DefaultUserID
	}
}

// DefaultSettings returns a Settings value with every default applied.
func DefaultSettings() Settings {
	s := Settings{BreakMin: constants.DefaultBreakMin}
	ApplyDefaultSettings(&s)
	return s
}
