package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore keeps each sheet as a header row in sheet_headers plus
// positional data rows in sheet_rows, cells stored as a TEXT[].
//
// (sheet, pos) is deliberately indexed but not unique: DeleteRow shifts
// every later row down by one in a single UPDATE, which would trip a
// per-row uniqueness check mid-statement.
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sheet_headers (
    sheet  TEXT PRIMARY KEY,
    labels TEXT[] NOT NULL
);
CREATE TABLE IF NOT EXISTS sheet_rows (
    sheet TEXT NOT NULL,
    pos   INTEGER NOT NULL,
    cells TEXT[] NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet_pos ON sheet_rows (sheet, pos);
`

// NewPostgresStore wires the store and creates its tables if missing.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("%w: ensuring schema: %v", ErrUnavailable, err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSheet seeds the header row for a sheet that does not exist yet.
func (p *PostgresStore) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	query := `INSERT INTO sheet_headers (sheet, labels) VALUES ($1, $2)
	          ON CONFLICT (sheet) DO NOTHING`
	if _, err := p.db.ExecContext(ctx, query, sheet, pq.Array(header)); err != nil {
		return fmt.Errorf("%w: ensuring sheet %q: %v", ErrUnavailable, sheet, err)
	}
	return nil
}

func (p *PostgresStore) ReadAll(ctx context.Context, sheet string) ([]string, [][]string, error) {
	var header []string
	err := p.db.QueryRowContext(ctx, "SELECT labels FROM sheet_headers WHERE sheet = $1", sheet).
		Scan(pq.Array(&header))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: unknown sheet %q", ErrUnavailable, sheet)
		}
		return nil, nil, fmt.Errorf("%w: reading header of %q: %v", ErrUnavailable, sheet, err)
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY pos", sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading rows of %q: %v", ErrUnavailable, sheet, err)
	}
	defer rows.Close()

	var data [][]string
	for rows.Next() {
		var cells []string
		if err := rows.Scan(pq.Array(&cells)); err != nil {
			return nil, nil, fmt.Errorf("%w: scanning row of %q: %v", ErrUnavailable, sheet, err)
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: iterating rows of %q: %v", ErrUnavailable, sheet, err)
	}
	return header, data, nil
}

func (p *PostgresStore) UpdateCell(ctx context.Context, sheet string, pos, col int, value string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin update: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	var cells []string
	err = tx.QueryRowContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = $1 AND pos = $2 FOR UPDATE", sheet, pos).
		Scan(pq.Array(&cells))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: sheet %q pos %d", ErrRowNotFound, sheet, pos)
		}
		return fmt.Errorf("%w: locking row: %v", ErrUnavailable, err)
	}

	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = value

	_, err = tx.ExecContext(ctx,
		"UPDATE sheet_rows SET cells = $1 WHERE sheet = $2 AND pos = $3", pq.Array(cells), sheet, pos)
	if err != nil {
		return fmt.Errorf("%w: writing cell: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing cell write: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) AppendRow(ctx context.Context, sheet string, cells []string) error {
	query := `INSERT INTO sheet_rows (sheet, pos, cells)
	          SELECT $1, COALESCE(MAX(pos) + 1, 0), $2 FROM sheet_rows WHERE sheet = $1`
	if _, err := p.db.ExecContext(ctx, query, sheet, pq.Array(cells)); err != nil {
		return fmt.Errorf("%w: appending row to %q: %v", ErrUnavailable, sheet, err)
	}
	return nil
}

func (p *PostgresStore) DeleteRow(ctx context.Context, sheet string, pos int) error {
	tx, err := p.db.BeginTx(ctx, nil)
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
