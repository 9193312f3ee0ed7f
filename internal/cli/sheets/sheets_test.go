package sheets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	ctx := &cli.Context{Store: store}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheet.csv")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCmd(t *testing.T) {
	ctx := setupTestDB(t)
	path := writeCSV(t, "Name,Priority,Estimated Duration\nEssay,high,90\nEmail,low,30\n")

	if err := (&ImportCmd{Sheet: constants.SheetPriority, File: path}).Run(ctx); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if err := (&ImportCmd{Sheet: constants.SheetPriority, File: path, Replace: true}).Run(ctx); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	rows, err := ctx.Store.ReadRows(context.Background(), constants.SheetPriority)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after replace", len(rows))
	}
	if rows[0].Get(models.ColEstimatedDuration) != "90" {
		t.Errorf("header not normalized: %v", rows[0])
	}
}

func TestAddAndSet(t *testing.T) {
	ctx := setupTestDB(t)
	bg := context.Background()

	add := &AddCmd{Sheet: constants.SheetFixed, Fields: []string{"name=Standup", "start_time=09:00", "end_time=09:30"}}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	set := &SetCmd{Sheet: constants.SheetFixed, Index: 0, Fields: []string{"end_time=09:45", "start_time="}}
	if err := set.Run(ctx); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	rows, _ := ctx.Store.ReadRows(bg, constants.SheetFixed)
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Get(models.ColEndTime) != "09:45" || rows[0].Get(models.ColStartTime) != "" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestSheetErrors(t *testing.T) {
	ctx := setupTestDB(t)

	tests := []struct {
		name string
		cmd  interface{ Run(*cli.Context) error }
	}{
		{"unknown sheet", &ListCmd{Sheet: "habits"}},
		{"missing name", &AddCmd{Sheet: constants.SheetPriority, Fields: []string{"priority=high"}}},
		{"bad field", &AddCmd{Sheet: constants.SheetPriority, Fields: []string{"Essay"}}},
		{"row out of range", &SetCmd{Sheet: constants.SheetFixed, Index: 3, Fields: []string{"name=x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
