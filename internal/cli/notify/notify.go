package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/engine"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/notifier"
)

type ListCmd struct {
	Pending bool `help:"Only show notifications still waiting to fire."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	cfgs, err := svc.Notifications(bg, c.Pending)
	if err != nil {
		return err
	}
	if len(cfgs) == 0 {
		fmt.Println("No notifications.")
		return nil
	}
	for _, cfg := range cfgs {
		fmt.Printf("  %s  %-9s  %-14s  %s\n", cfg.ScheduledTime.In(svc.Location()).Format("2006-01-02 15:04"),
			cfg.State, cfg.ID, cfg.Title)
		for _, a := range cfg.Actions {
			fmt.Printf("      %-20s %s\n", a.ID, a.Label)
		}
	}
	return nil
}

type ActionCmd struct {
	ID        string `arg:"" help:"Notification id."`
	Action    string `arg:"" help:"Action id, e.g. snooze, start_now, completed."`
	Actual    *int   `help:"Minutes actually spent."`
	Remaining *int   `help:"Minutes still needed."`
	Progress  *int   `help:"Progress in percent."`
	Notes     string `help:"Free-form notes."`
}

func (c *ActionCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	svc, err := ctx.Service(bg, false)
	if err != nil {
		return err
	}
	cfg, rec, err := svc.NotificationAction(bg, c.ID, c.Action, engine.ActionInput{
		ActualDurationMin: c.Actual,
		RemainingMin:      c.Remaining,
		Progress:          c.Progress,
		Notes:             c.Notes,
	})
	if err != nil {
		return err
	}

	switch {
	case rec != nil:
		fmt.Printf("✓ %q moved to tomorrow (%d min left)\n", rec.Name, rec.RemainingDuration)
	case cfg.State == models.StateSnoozed || cfg.State == models.StatePending:
		fmt.Printf("✓ %s now fires at %s\n", cfg.ID, cfg.ScheduledTime.In(svc.Location()).Format("15:04"))
	default:
		fmt.Printf("✓ %s: %s\n", cfg.ID, cfg.State)
	}
	return nil
}

// TestCmd pushes a system notification through the configured sinks.
type TestCmd struct {
	Message string `arg:"" optional:"" default:"Notifications are working." help:"Message to send."`
	DryRun  bool   `help:"Print the notification instead of sending it."`
}

func (c *TestCmd) Run(ctx *cli.Context) error {
	cfg := models.NotificationConfig{
		ID:      uuid.NewString(),
		Kind:    models.NotificationSystem,
		Title:   "dayplan",
		Message: c.Message,
		State:   models.StateDelivered,
	}
	if c.DryRun {
		fmt.Println("[DryRun] " + notifier.Text(cfg))
		return nil
	}

	sinks := ctx.Sinks()
	if len(sinks) == 0 {
		return errors.New("no notification sinks enabled in config.yaml")
	}
	d := notifier.NewDispatcher(sinks...)
	d.Enqueue(cfg)
	d.Close()
	fmt.Printf("Sent to: %v\n", d.Sinks())
	return nil
}
