package backend

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_UnknownSheet(t *testing.T) {
	store := NewMemoryStore()
	if _, _, err := store.ReadAll(context.Background(), "nope"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryStore_ReadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.EnsureSheet("s", []string{"a", "b"})
	if err := store.AppendRow(ctx, "s", []string{"1", "2"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	_, rows, err := store.ReadAll(ctx, "s")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	rows[0][0] = "mutated"

	_, rows2, _ := store.ReadAll(ctx, "s")
	if rows2[0][0] != "1" {
		t.Error("mutating a returned row changed the store")
	}
}

func TestMemoryStore_UpdateCellPadsShortRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.EnsureSheet("s", []string{"a", "b", "c"})
	if err := store.AppendRow(ctx, "s", []string{"only"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := store.UpdateCell(ctx, "s", 0, 2, "x"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	_, rows, _ := store.ReadAll(ctx, "s")
	if len(rows[0]) != 3 || rows[0][2] != "x" {
		t.Errorf("row after padded update: %v", rows[0])
	}
}

func TestMemoryStore_DeleteRowShifts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.EnsureSheet("s", []string{"a"})
	for _, v := range []string{"1", "2", "3"} {
		if err := store.AppendRow(ctx, "s", []string{v}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	if err := store.DeleteRow(ctx, "s", 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, rows, _ := store.ReadAll(ctx, "s")
	if len(rows) != 2 || rows[0][0] != "1" || rows[1][0] != "3" {
		t.Errorf("rows after delete: %v", rows)
	}

	if err := store.DeleteRow(ctx, "s", 5); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
}

func TestMemoryStore_EnsureSheetKeepsExistingHeader(t *testing.T) {
	store := NewMemoryStore()
	store.EnsureSheet("s", []string{"Nombre"})
	store.EnsureSheet("s", []string{"name", "stock"})

	header, _, err := store.ReadAll(context.Background(), "s")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(header) != 1 || header[0] != "Nombre" {
		t.Errorf("header = %v, want the original labels", header)
	}
}
