package settings

import (
	"errors"
	"fmt"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	DayStart          *string `help:"Start of working hours (HH:MM)."`
	DayEnd            *string `help:"End of working hours (HH:MM)."`
	BreakMin          *int    `help:"Break between consecutive tasks in minutes."`
	MaxConsecutiveMin *int    `help:"Work minutes allowed before a forced break."`
	CandidateCount    *int    `help:"Number of candidates per generation."`
	Timezone          *string `help:"IANA timezone used for planning."`
	StartOffsetMin    *int    `help:"Minutes before a task starts to send the reminder."`
	SnoozeMin         *int    `help:"Default snooze length in minutes."`
	UserID            *string `help:"User id stamped on generated schedules."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)

	if c.List {
		fmt.Println("Current Settings:")
		fmt.Printf("  Day Start:           %s\n", settings.DayStart)
		fmt.Printf("  Day End:             %s\n", settings.DayEnd)
		fmt.Printf("  Break:               %d min\n", settings.BreakMin)
		fmt.Printf("  Max Consecutive:     %d min\n", settings.MaxConsecutiveMin)
		fmt.Printf("  Candidates:          %d\n", settings.CandidateCount)
		fmt.Printf("  Timezone:            %s\n", settings.Timezone)
		fmt.Printf("  User:                %s\n", settings.UserID)
		fmt.Println("\nNotification Settings:")
		fmt.Printf("  Start Offset:        %d min\n", settings.StartOffsetMin)
		fmt.Printf("  Snooze:              %d min\n", settings.SnoozeMin)
		return nil
	}

	updated := false
	if c.DayStart != nil {
		settings.DayStart = *c.DayStart
		updated = true
	}
	if c.DayEnd != nil {
		settings.DayEnd = *c.DayEnd
		updated = true
	}
	if c.BreakMin != nil {
		settings.BreakMin = *c.BreakMin
		updated = true
	}
	if c.MaxConsecutiveMin != nil {
		settings.MaxConsecutiveMin = *c.MaxConsecutiveMin
		updated = true
	}
	if c.CandidateCount != nil {
		settings.CandidateCount = *c.CandidateCount
		updated = true
	}
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.StartOffsetMin != nil {
		settings.StartOffsetMin = *c.StartOffsetMin
		updated = true
	}
	if c.SnoozeMin != nil {
		settings.SnoozeMin = *c.SnoozeMin
		updated = true
	}
	if c.UserID != nil {
		settings.UserID = *c.UserID
		updated = true
	}

	if !updated {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	if err := validate(settings); err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Println("Settings updated successfully.")
	return nil
}

func validate(s models.Settings) error {
	start, err := utils.ParseTime(s.DayStart)
	if err != nil {
		return fmt.Errorf("invalid day start %q, use HH:MM", s.DayStart)
	}
	end, err := utils.ParseTime(s.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid day end %q, use HH:MM", s.DayEnd)
	}
	if !end.After(start) {
		return fmt.Errorf("day end %s must be after day start %s", s.DayEnd, s.DayStart)
	}
	if !utils.ValidateTimezone(s.Timezone) {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	for name, v := range map[string]int{
		"break-min":           s.BreakMin,
		"max-consecutive-min": s.MaxConsecutiveMin,
		"start-offset-min":    s.StartOffsetMin,
		"snooze-min":          s.SnoozeMin,
	} {
		if v < 0 {
			return fmt.Errorf("--%s must not be negative", name)
		}
	}
	if s.CandidateCount < 1 {
		return errors.New("--candidate-count must be at least 1")
	}
	return nil
}
