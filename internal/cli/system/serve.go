package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/dayplan/internal/api"
	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/engine"
	"github.com/julianstephens/dayplan/internal/logger"
)

// ServeCmd runs the HTTP API and delivers notifications until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address. Defaults to server.addr from config.yaml."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := ctx.Service(runCtx, true)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	n, err := svc.RestoreNotifications(runCtx)
	if err != nil {
		return fmt.Errorf("failed to restore notifications: %w", err)
	}
	logger.Info("Restored notifications", "count", n, "sinks", svc.Sinks())

	if tg, ok := ctx.Telegram(); ok {
		go tg.Listen(runCtx, func(id, actionID string) error {
			_, _, err := svc.NotificationAction(runCtx, id, actionID, engine.ActionInput{})
			return err
		})
	}

	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.Server.Addr
	}
	return api.New(svc, ctx.Config.Server.AllowedOrigins).Run(runCtx, addr)
}
