package backend

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process RowStore. It backs single-household runs
// that do not need a database, and it is the store used by unit tests.
type MemoryStore struct {
	mu     sync.Mutex
	sheets map[string]*memorySheet
}

type memorySheet struct {
	header []string
	rows   [][]string
}

// NewMemoryStore creates an empty store. Sheets are created on first use;
// EnsureSheet seeds the header row.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: map[string]*memorySheet{}}
}

// EnsureSheet creates the sheet with the given header labels if it does
// not exist yet. An existing sheet keeps its header untouched, matching
// how a legacy spreadsheet keeps whatever labels it was created with.
func (m *MemoryStore) EnsureSheet(sheet string, header []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[sheet]; ok {
		return
	}
	h := make([]string, len(header))
	copy(h, header)
	m.sheets[sheet] = &memorySheet{header: h}
}

func (m *MemoryStore) sheet(name string) (*memorySheet, error) {
	s, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sheet %q", ErrUnavailable, name)
	}
	return s, nil
}

func (m *MemoryStore) ReadAll(_ context.Context, sheet string) ([]string, [][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sheet(sheet)
	if err != nil {
		return nil, nil, err
	}
	header := make([]string, len(s.header))
	copy(header, s.header)
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = make([]string, len(r))
		copy(rows[i], r)
	}
	return header, rows, nil
}

func (m *MemoryStore) UpdateCell(_ context.Context, sheet string, pos, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(s.rows) {
		return fmt.Errorf("%w: sheet %q pos %d", ErrRowNotFound, sheet, pos)
	}
	row := s.rows[pos]
	if col < 0 || col >= len(s.header) {
		return fmt.Errorf("%w: sheet %q col %d out of range", ErrUnavailable, sheet, col)
	}
	// Legacy rows can be shorter than the header; pad before writing.
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	s.rows[pos] = row
	return nil
}

func (m *MemoryStore) AppendRow(_ context.Context, sheet string, cells []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	row := make([]string, len(cells))
	copy(row, cells)
	s.rows = append(s.rows, row)
	return nil
}

func (m *MemoryStore) DeleteRow(_ context.Context, sheet string, pos int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(s.rows) {
		return fmt.Errorf("%w: sheet %q pos %d", ErrRowNotFound, sheet, pos)
	}
	s.rows = append(s.rows[:pos], s.rows[pos+1:]...)
	return nil
}
