package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLiteStore mirrors PostgresStore for households that run the backend
// off a single local file. Cell arrays are stored as JSON text because
// SQLite has no native array type.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sheet_headers (
    sheet  TEXT PRIMARY KEY,
    labels TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sheet_rows (
    sheet TEXT NOT NULL,
    pos   INTEGER NOT NULL,
    cells TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet_pos ON sheet_rows (sheet, pos);
`

// NewSQLiteStore wires the store and creates its tables if missing.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("%w: ensuring schema: %v", ErrUnavailable, err)
	}
	return &SQLiteStore{db: db}, nil
}

func encodeCells(cells []string) (string, error) {
	b, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("%w: encoding cells: %v", ErrUnavailable, err)
	}
	return string(b), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("%w: decoding cells: %v", ErrUnavailable, err)
	}
	return cells, nil
}

// EnsureSheet seeds the header row for a sheet that does not exist yet.
func (s *SQLiteStore) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	labels, err := encodeCells(header)
	if err != nil {
		return err
	}
	query := `INSERT INTO sheet_headers (sheet, labels) VALUES ($1, $2)
	          ON CONFLICT (sheet) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, sheet, labels); err != nil {
		return fmt.Errorf("%w: ensuring sheet %q: %v", ErrUnavailable, sheet, err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, sheet string) ([]string, [][]string, error) {
	var rawLabels string
	err := s.db.QueryRowContext(ctx, "SELECT labels FROM sheet_headers WHERE sheet = $1", sheet).
		Scan(&rawLabels)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: unknown sheet %q", ErrUnavailable, sheet)
		}
		return nil, nil, fmt.Errorf("%w: reading header of %q: %v", ErrUnavailable, sheet, err)
	}
	header, err := decodeCells(rawLabels)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY pos", sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading rows of %q: %v", ErrUnavailable, sheet, err)
	}
	defer rows.Close()

	var data [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, nil, fmt.Errorf("%w: scanning row of %q: %v", ErrUnavailable, sheet, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, nil, err
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: iterating rows of %q: %v", ErrUnavailable, sheet, err)
	}
	return header, data, nil
}

func (s *SQLiteStore) UpdateCell(ctx context.Context, sheet string, pos, col int, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin update: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = $1 AND pos = $2", sheet, pos).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: sheet %q pos %d", ErrRowNotFound, sheet, pos)
		}
		return fmt.Errorf("%w: reading row: %v", ErrUnavailable, err)
	}
	cells, err := decodeCells(raw)
	if err != nil {
		return err
	}

	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = value
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sheet_rows SET cells = $1 WHERE sheet = $2 AND pos = $3", encoded, sheet, pos)
	if err != nil {
		return fmt.Errorf("%w: writing cell: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing cell write: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) AppendRow(ctx context.Context, sheet string, cells []string) error {
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}
	query := `INSERT INTO sheet_rows (sheet, pos, cells)
	          SELECT $1, COALESCE(MAX(pos) + 1, 0), $2 FROM sheet_rows WHERE sheet = $1`
	if _, err := s.db.ExecContext(ctx, query, sheet, encoded); err != nil {
		return fmt.Errorf("%w: appending row to %q: %v", ErrUnavailable, sheet, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteRow(ctx context.Context, sheet string, pos int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM sheet_rows WHERE sheet = $1 AND pos = $2", sheet, pos)
	if err != nil {
		return fmt.Errorf("%w: deleting row: %v", ErrUnavailable, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: sheet %q pos %d", ErrRowNotFound, sheet, pos)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sheet_rows SET pos = pos - 1 WHERE sheet = $1 AND pos > $2", sheet, pos)
	if err != nil {
		return fmt.Errorf("%w: shifting rows: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing delete: %v", ErrUnavailable, err)
	}
	return nil
}
