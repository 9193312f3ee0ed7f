package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/models"
)

func (s *Store) ReadRows(ctx context.Context, sheet string) ([]models.Row, error) {
	rows, err := s.query(ctx, "SELECT data FROM sheet_rows WHERE sheet = ? ORDER BY row_index", sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		row := models.Row{}
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("failed to decode row of sheet %s: %w", sheet, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) AppendRow(ctx context.Context, sheet string, row models.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, s.rebind(
		"SELECT COALESCE(MAX(row_index) + 1, 0) FROM sheet_rows WHERE sheet = ?"), sheet).Scan(&next); err != nil {
		return fmt.Errorf("failed to find next row of sheet %s: %w", sheet, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		"INSERT INTO sheet_rows (sheet, row_index, data, updated_at) VALUES (?, ?, ?, ?)"),
		sheet, next, string(data), formatTime(s.now())); err != nil {
		return fmt.Errorf("failed to append row to sheet %s: %w", sheet, err)
	}
	return tx.Commit()
}

func (s *Store) UpdateRow(ctx context.Context, sheet string, index int, row models.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx,
		"UPDATE sheet_rows SET data = ?, updated_at = ? WHERE sheet = ? AND row_index = ?",
		string(data), formatTime(s.now()), sheet, index)
	if err != nil {
		return fmt.Errorf("failed to update row %d of sheet %s: %w", index, sheet, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("row %d of sheet %s: %w", index, sheet, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRow(context.Context, string, int) error {
	return fmt.Errorf("delete row: %w", apperrors.ErrUnsupported)
}

// ClearSheet drops every row of a sheet; used by re-imports.
func (s *Store) ClearSheet(ctx context.Context, sheet string) error {
	_, err := s.exec(ctx, "DELETE FROM sheet_rows WHERE sheet = ?", sheet)
	return err
}
