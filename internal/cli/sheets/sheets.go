package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/storage"
)

type sheetClearer interface {
	ClearSheet(ctx context.Context, sheet string) error
}

func checkSheet(name string) error {
	if !storage.ValidSheet(name) {
		return fmt.Errorf("unknown sheet %q, expected one of %s", name, strings.Join(storage.Sheets, ", "))
	}
	return nil
}

// parseFields turns key=value arguments into a row with lower-case keys.
func parseFields(fields []string) (models.Row, error) {
	row := models.Row{}
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, use key=value", f)
		}
		row[k] = v
	}
	return row, nil
}

type ImportCmd struct {
	Sheet   string `arg:"" help:"Sheet to import into (fixed, priority, incomplete)."`
	File    string `arg:"" type:"existingfile" help:"CSV export whose first row is the header."`
	Replace bool   `help:"Drop the sheet's existing rows first."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	if err := checkSheet(c.Sheet); err != nil {
		return err
	}
	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	rows, err := storage.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}

	bg := context.Background()
	if c.Replace {
		clearer, ok := ctx.Store.(sheetClearer)
		if !ok {
			return errors.New("this store cannot replace sheets")
		}
		if err := clearer.ClearSheet(bg, c.Sheet); err != nil {
			return fmt.Errorf("failed to clear sheet %s: %w", c.Sheet, err)
		}
	}
	for i, row := range rows {
		if err := ctx.Store.AppendRow(bg, c.Sheet, row); err != nil {
			return fmt.Errorf("failed to import row %d: %w", i+1, err)
		}
	}
	fmt.Printf("Imported %d rows into %s.\n", len(rows), c.Sheet)
	return nil
}

type ListCmd struct {
	Sheet string `arg:"" help:"Sheet to list."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	if err := checkSheet(c.Sheet); err != nil {
		return err
	}
	rows, err := ctx.Store.ReadRows(context.Background(), c.Sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("Sheet %s is empty.\n", c.Sheet)
		return nil
	}
	for i, row := range rows {
		fmt.Printf("%3d  %s\n", i, formatRow(row))
	}
	return nil
}

// formatRow prints the name first and the remaining columns sorted.
func formatRow(row models.Row) string {
	keys := make([]string, 0, len(row))
	for k, v := range row {
		if k == models.ColName || strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{row.Get(models.ColName)}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, row[k]))
	}
	return strings.Join(parts, "  ")
}

type AddCmd struct {
	Sheet  string   `arg:"" help:"Sheet to append to."`
	Fields []string `arg:"" help:"Columns as key=value, e.g. name=Essay priority=high."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	if err := checkSheet(c.Sheet); err != nil {
		return err
	}
	row, err := parseFields(c.Fields)
	if err != nil {
		return err
	}
	if row.Get(models.ColName) == "" {
		return errors.New("a name=... field is required")
	}
	if err := ctx.Store.AppendRow(context.Background(), c.Sheet, row); err != nil {
		return err
	}
	fmt.Printf("Added %q to %s.\n", row.Get(models.ColName), c.Sheet)
	return nil
}

type SetCmd struct {
	Sheet  string   `arg:"" help:"Sheet holding the row."`
	Index  int      `arg:"" help:"0-based row index as shown by 'sheets list'."`
	Fields []string `arg:"" help:"Columns to change as key=value. An empty value clears the column."`
}

func (c *SetCmd) Run(ctx *cli.Context) error {
	if err := checkSheet(c.Sheet); err != nil {
		return err
	}
	changes, err := parseFields(c.Fields)
	if err != nil {
		return err
	}

	bg := context.Background()
	rows, err := ctx.Store.ReadRows(bg, c.Sheet)
	if err != nil {
		return err
	}
	if c.Index < 0 || c.Index >= len(rows) {
		return fmt.Errorf("row %d does not exist in %s (%d rows)", c.Index, c.Sheet, len(rows))
	}

	row := rows[c.Index]
	for k, v := range changes {
		if v == "" {
			delete(row, k)
			continue
		}
		row[k] = v
	}
	if err := ctx.Store.UpdateRow(bg, c.Sheet, c.Index, row); err != nil {
		return err
	}
	fmt.Printf("Updated row %d of %s.\n", c.Index, c.Sheet)
	return nil
}
