package system

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/julianstephens/dayplan/internal/backup"
	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/keyring"
	"github.com/julianstephens/dayplan/internal/migration"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/reasoner"
	"github.com/julianstephens/dayplan/internal/storage"
	"github.com/julianstephens/dayplan/internal/storage/sqlite"
	"github.com/julianstephens/dayplan/internal/utils"
	"github.com/julianstephens/dayplan/migrations"
)

// errSkip marks a check that does not apply to this setup.
var errSkip = errors.New("skipped")

type dbHolder interface {
	DB() *sql.DB
}

type DoctorCmd struct{}

type check struct {
	name     string
	needsDB  bool
	warnOnly bool
	run      func(*cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	checks := []check{
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Settings", needsDB: true, run: checkSettings},
		{name: "Sheets", needsDB: true, run: checkSheets},
		{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
		{name: "Clock/timezone", run: func(*cli.Context) error { return checkClock() }},
		{name: "OS keyring", warnOnly: true, run: func(*cli.Context) error { return checkKeyring() }},
		{name: "Reasoner", warnOnly: true, run: checkReasoner},
	}

	hasError := false
	dbReachable := false
	for i, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		if i == 0 {
			dbReachable = err == nil
		}
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case errors.Is(err, errSkip):
			fmt.Printf("⊘ %s: SKIPPED (%v)\n", c.name, err)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	h, ok := ctx.Store.(dbHolder)
	if !ok || h.DB() == nil {
		return errors.New("database connection is nil")
	}
	var result int
	if err := h.DB().QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	dir, placeholder := "postgres", migration.Dollar
	if _, ok := ctx.Store.(*sqlite.Store); ok {
		dir, placeholder = "sqlite", migration.Question
	}
	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return err
	}
	runner := migration.NewRunner(ctx.Store.(dbHolder).DB(), sub, placeholder)

	current, err := runner.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	switch {
	case current > latest:
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	case current < latest:
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	s, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&s)
	if !utils.ValidateTimezone(s.Timezone) {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	if !utils.ValidateTimeFormat(s.DayStart) || !utils.ValidateTimeFormat(s.DayEnd) {
		return fmt.Errorf("invalid working hours %s-%s", s.DayStart, s.DayEnd)
	}
	return nil
}

func checkSheets(ctx *cli.Context) error {
	bg := context.Background()
	total := 0
	for _, sheet := range storage.Sheets {
		rows, err := ctx.Store.ReadRows(bg, sheet)
		if err != nil {
			return err
		}
		for i, r := range rows {
			if r.Get(models.ColName) == "" {
				return fmt.Errorf("row %d of %s has no name", i, sheet)
			}
		}
		total += len(rows)
	}
	if total == 0 {
		return fmt.Errorf("%w: all sheets are empty", errSkip)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("%w: not a SQLite store", errSkip)
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found - consider creating one with 'dayplan backup create'")
	}
	return nil
}

func checkClock() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkKeyring() error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available; secrets must come from the environment")
	}
	return nil
}

func checkReasoner(ctx *cli.Context) error {
	rc := ctx.Config.Reasoner
	if !rc.Enabled {
		return fmt.Errorf("%w: reasoner disabled", errSkip)
	}
	r, err := reasoner.NewOllamaReasoner(reasoner.Config{Host: rc.Host, Model: rc.Model, Timeout: rc.Timeout})
	if err != nil {
		return err
	}
	if err := r.Ping(context.Background()); err != nil {
		return fmt.Errorf("ollama not reachable, schedules will use the greedy packer: %w", err)
	}
	return nil
}
