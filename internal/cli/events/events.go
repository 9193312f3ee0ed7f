package events

import (
	"context"
	"fmt"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/utils"
)

type AddCmd struct {
	Name        string `arg:"" help:"Event title."`
	Start       string `required:"" help:"Start time (HH:MM)."`
	End         string `required:"" help:"End time (HH:MM)."`
	Date        string `default:"today" help:"Date (YYYY-MM-DD, today or tomorrow)."`
	Description string `help:"Optional description."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	day, err := svc.PlanDate(c.Date)
	if err != nil {
		return err
	}
	start, err := utils.ClockOn(day, c.Start)
	if err != nil {
		return err
	}
	end, err := utils.ClockOn(day, c.End)
	if err != nil {
		return err
	}

	ev, err := ctx.Store.CreateEvent(bg, models.Event{
		Name:        c.Name,
		Description: c.Description,
		Start:       start,
		End:         end,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added event %q on %s %s-%s (id %s)\n", ev.Name, day.Format(constants.DateFormat),
		c.Start, c.End, ev.ID)
	return nil
}

type ListCmd struct {
	Date string `arg:"" optional:"" default:"today" help:"Date (YYYY-MM-DD, today or tomorrow)."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	day, err := svc.PlanDate(c.Date)
	if err != nil {
		return err
	}
	evs, err := ctx.Store.ListEvents(bg, day, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	if len(evs) == 0 {
		fmt.Printf("No events on %s.\n", day.Format(constants.DateFormat))
		return nil
	}
	loc := svc.Location()
	fmt.Printf("Events on %s:\n\n", day.Format(constants.DateFormat))
	for _, ev := range evs {
		source := "busy"
		if ev.TaskID != "" {
			source = "scheduled"
		}
		fmt.Printf("  %s-%s  %-30s  [%s]\n", ev.Start.In(loc).Format(constants.TimeFormat),
			ev.End.In(loc).Format(constants.TimeFormat), ev.Name, source)
	}
	return nil
}
