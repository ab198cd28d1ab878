package backend

import (
	"context"
	"errors"
)

// Sheet names used by the application. Both live in the same backing
// store but are addressed independently.
const (
	SheetInventory = "inventory"
	SheetAudit     = "audit"
)

var (
	// ErrUnavailable is returned when the backing store cannot be reached
	// or a call against it fails. Callers must not assume a write applied
	// when they see this error.
	ErrUnavailable = errors.New("record store backend unavailable")

	// ErrRowNotFound is returned when a positional operation targets a row
	// index that no longer exists.
	ErrRowNotFound = errors.New("row not found at given position")
)

// RowStore is the spreadsheet-shaped contract every backend satisfies:
// a header row of labels plus positional data rows. Row positions are
// 0-based and exclude the header; deleting a row shifts all later rows
// down by one.
type RowStore interface {
	// ReadAll returns the header labels and every data row, in order.
	ReadAll(ctx context.Context, sheet string) (header []string, rows [][]string, err error)

	// UpdateCell overwrites a single cell of the row at pos.
	UpdateCell(ctx context.Context, sheet string, pos, col int, value string) error

	// AppendRow adds a row after the last data row.
	AppendRow(ctx context.Context, sheet string, cells []string) error

	// DeleteRow removes the row at pos; later rows shift down.
	DeleteRow(ctx context.Context, sheet string, pos int) error
}
