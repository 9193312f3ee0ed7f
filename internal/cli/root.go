package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/julianstephens/dayplan/internal/backup"
	"github.com/julianstephens/dayplan/internal/config"
	"github.com/julianstephens/dayplan/internal/engine"
	"github.com/julianstephens/dayplan/internal/keyring"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/notifier"
	"github.com/julianstephens/dayplan/internal/reasoner"
	"github.com/julianstephens/dayplan/internal/storage"
	"github.com/julianstephens/dayplan/internal/storage/sqlite"
	"github.com/julianstephens/dayplan/internal/timer"
)

type Context struct {
	Store  storage.Provider
	Config config.Config
	// ConfigPath is where Config was loaded from.
	ConfigPath string
	// Clock is nil outside tests.
	Clock timer.Clock
	// In answers confirmation prompts. Nil means stdin.
	In io.Reader

	svc   *engine.Service
	sinks []notifier.Sink
}

// Service builds the scheduling service on first use and restores the current
// schedule. Sinks are only attached for the long-running commands that deliver
// notifications.
func (c *Context) Service(ctx context.Context, withSinks bool) (*engine.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}

	opts := engine.Options{Clock: c.Clock}
	if c.Config.Reasoner.Enabled {
		r, err := reasoner.NewOllamaReasoner(reasoner.Config{
			Host:        c.Config.Reasoner.Host,
			Model:       c.Config.Reasoner.Model,
			Timeout:     c.Config.Reasoner.Timeout,
			Temperature: float64(c.Config.Reasoner.Temperature),
		})
		if err != nil {
			logger.Warn("Reasoner disabled", "error", err)
		} else {
			opts.Reasoner = r
		}
	}
	if _, ok := c.Store.(*sqlite.Store); ok {
		opts.Backup = backup.NewManager(c.Store.GetConfigPath()).CreateBackup
	}
	if withSinks {
		c.sinks = c.Sinks()
		opts.Sinks = c.sinks
	}

	svc, err := engine.New(c.Store, opts)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	c.svc = svc
	return svc, nil
}

// Sinks returns the enabled notification sinks. A sink whose secret is
// missing is skipped with a warning.
func (c *Context) Sinks() []notifier.Sink {
	var sinks []notifier.Sink
	n := c.Config.Notify

	if n.Tray.Enabled {
		sinks = append(sinks, notifier.NewTraySink())
	}

	if n.Telegram.Enabled {
		token := n.Telegram.Token
		if token == "" {
			token, _ = keyring.Lookup(keyring.TelegramToken)
		}
		if token == "" {
			logger.Warn("Telegram enabled but no token found", "secret", keyring.TelegramToken)
		} else if tg, err := notifier.NewTelegramSink(token, n.Telegram.ChatID); err != nil {
			logger.Warn("Failed to create telegram sink", "error", err)
		} else {
			sinks = append(sinks, tg)
		}
	}

	if n.Email.Enabled {
		password := n.Email.Password
		if password == "" {
			password, _ = keyring.Lookup(keyring.SMTPPassword)
		}
		sinks = append(sinks, notifier.NewEmailSink(n.Email.SMTPHost, n.Email.SMTPPort,
			n.Email.SMTPUser, password, n.Email.From, n.Email.To))
	}
	return sinks
}

// Telegram returns the telegram sink the service delivers to, if any.
func (c *Context) Telegram() (*notifier.TelegramSink, bool) {
	for _, s := range c.sinks {
		if tg, ok := s.(*notifier.TelegramSink); ok {
			return tg, true
		}
	}
	return nil, false
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Confirm asks a y/N question and reports whether the answer was yes.
func (c *Context) Confirm(question string) (bool, error) {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Printf("%s [y/N]: ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// Close stops the service, if one was built, and the store.
func (c *Context) Close() error {
	if c.svc != nil {
		c.svc.Close()
		c.svc = nil
	}
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
