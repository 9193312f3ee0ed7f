package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/tui"
)

// WatchCmd runs the terminal watcher. It owns the timers while it runs, so
// reminders fire and reach the configured sinks.
type WatchCmd struct {
	NoSinks bool `help:"Only show notifications in the terminal."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := ctx.Service(runCtx, !c.NoSinks)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	m := tui.NewModel(runCtx, svc, nil)
	defer m.Close()

	n, err := svc.RestoreNotifications(runCtx)
	if err != nil {
		return fmt.Errorf("failed to restore notifications: %w", err)
	}
	logger.Info("Watching", "restored", n, "sinks", svc.Sinks())

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watcher exited: %w", err)
	}
	return nil
}
