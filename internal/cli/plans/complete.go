package plans

import (
	"context"
	"fmt"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/models"
)

type CompleteCmd struct {
	TaskID    string `arg:"" help:"Id of a task in the current schedule."`
	Status    string `default:"completed" enum:"completed,partially_completed,not_completed" help:"Outcome: completed, partially_completed or not_completed."`
	Actual    *int   `help:"Minutes actually spent."`
	Remaining *int   `help:"Minutes still needed."`
	Progress  *int   `help:"Progress in percent."`
	Notes     string `help:"Free-form notes."`
	Reason    string `help:"Why the task was not finished."`
}

func (c *CompleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}

	status, err := models.ParseCompletionStatus(c.Status)
	if err != nil {
		return err
	}
	rec, err := svc.Complete(bg, models.TaskCompletionData{
		TaskID:            c.TaskID,
		Status:            status,
		ActualDurationMin: c.Actual,
		RemainingMin:      c.Remaining,
		Progress:          c.Progress,
		Notes:             c.Notes,
		Reason:            c.Reason,
	})
	if err != nil {
		return err
	}

	if rec != nil {
		fmt.Printf("✓ %q moved to the incomplete sheet for tomorrow (%d of %d min left)\n",
			rec.Name, rec.RemainingDuration, rec.OriginalDuration)
		return nil
	}
	fmt.Printf("✓ Recorded %s for %s\n", status, c.TaskID)
	return nil
}

type HistoryCmd struct {
	Date string `arg:"" optional:"" default:"today" help:"Date (YYYY-MM-DD, today or tomorrow)."`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	recs, err := svc.Completions(bg, c.Date)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No outcomes recorded.")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("  %s  %-30s  %-20s  %3d min spent  %3d min left\n",
			r.RecordedAt.In(svc.Location()).Format("15:04"), r.TaskName, r.Status,
			r.ActualDurationMin, r.RemainingMin)
	}
	return nil
}
