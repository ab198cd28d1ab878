package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/models"
	"botiquin_backend/pkg/utils"

	"github.com/google/uuid"
)

// Canonical field names of the inventory sheet. Legacy sheets may label
// the columns differently (Spanish, accented, reordered); the alias table
// below maps whatever labels the sheet carries back onto these.
const (
	FieldID               = "id"
	FieldName             = "name"
	FieldStock            = "stock"
	FieldExpiryDate       = "expiry_date"
	FieldLocation         = "location"
	FieldActiveIngredient = "active_ingredient"
	FieldDescription      = "description"
	FieldLastModifiedBy   = "last_modified_by"
)

// CanonicalInventoryHeader is the header written when a fresh sheet is
// bootstrapped. Existing sheets keep their own labels.
func CanonicalInventoryHeader() []string {
	return []string{
		FieldID, FieldName, FieldStock, FieldExpiryDate,
		FieldLocation, FieldActiveIngredient, FieldDescription, FieldLastModifiedBy,
	}
}

// headerAliases maps a normalized header label to its canonical field.
// This replaces the ad hoc substring guessing of earlier drafts with one
// declared, testable table.
var headerAliases = map[string]string{
	"id": FieldID,

	"name":        FieldName,
	"nombre":      FieldName,
	"medicamento": FieldName,
	"medicina":    FieldName,
	"medicine":    FieldName,

	"stock":    FieldStock,
	"cantidad": FieldStock,
	"unidades": FieldStock,
	"quantity": FieldStock,

	"expiry date":          FieldExpiryDate,
	"expiry":               FieldExpiryDate,
	"caducidad":            FieldExpiryDate,
	"fecha de caducidad":   FieldExpiryDate,
	"fecha caducidad":      FieldExpiryDate,
	"vencimiento":          FieldExpiryDate,
	"fecha de vencimiento": FieldExpiryDate,

	"location":  FieldLocation,
	"ubicacion": FieldLocation,
	"lugar":     FieldLocation,
	"zona":      FieldLocation,

	"active ingredient": FieldActiveIngredient,
	"principio activo":  FieldActiveIngredient,
	"pactivos":          FieldActiveIngredient,

	"description": FieldDescription,
	"descripcion": FieldDescription,
	"notas":       FieldDescription,
	"notes":       FieldDescription,

	"last modified by": FieldLastModifiedBy,
	"modificado por":   FieldLastModifiedBy,
	"updated by":       FieldLastModifiedBy,
}

// expiryLayouts are tried in order when parsing legacy date cells.
var expiryLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"}

// ExpiryDateLayout is the layout used when writing dates back.
const ExpiryDateLayout = "2006-01-02"

// InventoryRepository is the row-indexed record store: it translates CRUD
// calls into backend operations and maintains positional identity. All
// writes re-resolve the target row immediately before touching the
// backend (id first, then name), so a concurrent delete that shifted row
// positions can never make a write land on an unrelated record.
type InventoryRepository interface {
	// Load returns the current snapshot. It fails soft: on backend error
	// the last known-good snapshot is returned (empty if none), never an
	// error.
	Load(ctx context.Context) []models.MedicineRecord

	// GetByID re-resolves the record against a fresh backend read.
	GetByID(ctx context.Context, id string) (*models.MedicineRecord, error)

	// Insert appends a new record, assigning an id if it has none.
	Insert(ctx context.Context, rec *models.MedicineRecord) error

	// UpdateField writes one field of one record, reconciling its position
	// immediately before the cell write.
	UpdateField(ctx context.Context, id, field, value string) error

	// Delete removes the record and returns its last state.
	Delete(ctx context.Context, id string) (*models.MedicineRecord, error)
}

type inventoryRepository struct {
	store backend.RowStore

	mu       sync.Mutex
	snapshot []models.MedicineRecord
	cols     map[string]int
}

// NewInventoryRepository creates a repository over the given backend.
func NewInventoryRepository(store backend.RowStore) InventoryRepository {
	return &inventoryRepository{store: store}
}

// fetch reads the whole sheet and maps it to records. Unlike Load it
// propagates backend errors, because mutations must not proceed on a
// stale view.
func (r *inventoryRepository) fetch(ctx context.Context) ([]models.MedicineRecord, map[string]int, error) {
	header, rows, err := r.store.ReadAll(ctx, backend.SheetInventory)
	if err != nil {
		return nil, nil, err
	}

	cols := mapHeader(header)
	records := make([]models.MedicineRecord, 0, len(rows))
	for pos, row := range rows {
		rec := models.MedicineRecord{
			ID:               cell(row, cols[FieldID]),
			Name:             strings.TrimSpace(cell(row, cols[FieldName])),
			Stock:            coerceStock(cell(row, cols[FieldStock])),
			ExpiryDate:       parseExpiry(cell(row, cols[FieldExpiryDate])),
			Location:         strings.TrimSpace(cell(row, cols[FieldLocation])),
			ActiveIngredient: strings.TrimSpace(cell(row, cols[FieldActiveIngredient])),
			Description:      strings.TrimSpace(cell(row, cols[FieldDescription])),
			LastModifiedBy:   strings.TrimSpace(cell(row, cols[FieldLastModifiedBy])),
			Position:         pos,
		}
		rec.SearchText = utils.NormalizeText(rec.Name + " " + rec.Location + " " + rec.Description)
		records = append(records, rec)
	}
	return records, cols, nil
}

func (r *inventoryRepository) Load(ctx context.Context) []models.MedicineRecord {
	records, cols, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		utils.LogError(err, "inventory load failed, serving last known snapshot")
		return copyRecords(r.snapshot)
	}
	r.snapshot = records
	r.cols = cols
	return copyRecords(records)
}

// reconcile re-resolves a record by id against a fresh read; if the id is
// gone it falls back to the name the record had in the last snapshot, so
// a stale mutation lands on a same-named survivor or fails with
// ErrNotFound, never on an unrelated row.
func (r *inventoryRepository) reconcile(ctx context.Context, id string) (*models.MedicineRecord, map[string]int, error) {
	fresh, cols, err := r.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	staleName := ""
	for i := range r.snapshot {
		if r.snapshot[i].ID == id {
			staleName = r.snapshot[i].Name
			break
		}
	}
	r.snapshot = fresh
	r.cols = cols
	r.mu.Unlock()

	for i := range fresh {
		if fresh[i].ID != "" && fresh[i].ID == id {
			return &fresh[i], cols, nil
		}
	}
	if staleName != "" {
		for i := range fresh {
			if fresh[i].Name == staleName {
				return &fresh[i], cols, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: medicine %s", ErrNotFound, id)
}

func (r *inventoryRepository) GetByID(ctx context.Context, id string) (*models.MedicineRecord, error) {
	rec, _, err := r.reconcile(ctx, id)
	return rec, err
}

func (r *inventoryRepository) Insert(ctx context.Context, rec *models.MedicineRecord) error {
	header, rows, err := r.store.ReadAll(ctx, backend.SheetInventory)
	if err != nil {
		return err
	}
	cols := mapHeader(header)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Name = strings.TrimSpace(rec.Name)

	cells := make([]string, len(header))
	put := func(field, value string) {
		col, ok := cols[field]
		if !ok || col < 0 {
			return // legacy sheet without this column, value not persisted
		}
		cells[col] = value
	}
	put(FieldID, rec.ID)
	put(FieldName, rec.Name)
	put(FieldStock, strconv.Itoa(rec.Stock))
	if rec.ExpiryDate != nil {
		put(FieldExpiryDate, rec.ExpiryDate.Format(ExpiryDateLayout))
	}
	put(FieldLocation, rec.Location)
	put(FieldActiveIngredient, rec.ActiveIngredient)
	put(FieldDescription, rec.Description)
	put(FieldLastModifiedBy, rec.LastModifiedBy)

	if err := r.store.AppendRow(ctx, backend.SheetInventory, cells); err != nil {
		return err
	}
	rec.Position = len(rows)
	rec.SearchText = utils.NormalizeText(rec.Name + " " + rec.Location + " " + rec.Description)

	r.mu.Lock()
	r.snapshot = append(r.snapshot, *rec)
	r.mu.Unlock()
	return nil
}

func (r *inventoryRepository) UpdateField(ctx context.Context, id, field, value string) error {
	rec, cols, err := r.reconcile(ctx, id)
	if err != nil {
		return err
	}
	col, ok := cols[field]
	if !ok || col < 0 {
		return fmt.Errorf("%w: sheet has no column for field %q", ErrDatabaseError, field)
	}
	if err := r.store.UpdateCell(ctx, backend.SheetInventory, rec.Position, col, value); err != nil {
		r.invalidate()
		return err
	}
	// The cached row is stale for this field now; drop the snapshot so the
	// next read reloads instead of serving it as known-good.
	r.invalidate()
	return nil
}

func (r *inventoryRepository) Delete(ctx context.Context, id string) (*models.MedicineRecord, error) {
	rec, _, err := r.reconcile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteRow(ctx, backend.SheetInventory, rec.Position); err != nil {
		r.invalidate()
		return nil, err
	}
	// Positions after rec.Position shifted down; cached indices are stale.
	r.invalidate()
	deleted := *rec
	return &deleted, nil
}

func (r *inventoryRepository) invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}

// --- mapping helpers ---

func mapHeader(header []string) map[string]int {
	cols := map[string]int{
		FieldID: -1, FieldName: -1, FieldStock: -1, FieldExpiryDate: -1,
		FieldLocation: -1, FieldActiveIngredient: -1, FieldDescription: -1, FieldLastModifiedBy: -1,
	}
	for i, label := range header {
		if field, ok := headerAliases[utils.NormalizeLabel(label)]; ok {
			if cols[field] == -1 { // first match wins on duplicate labels
				cols[field] = i
			}
		}
	}
	return cols
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// coerceStock clamps the stock cell to a non-negative integer.
// Unparseable legacy values count as zero rather than failing the load.
func coerceStock(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseExpiry returns nil for absent or unparseable dates; the classifier
// treats nil as "unknown/OK", never as expired.
func parseExpiry(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func copyRecords(records []models.MedicineRecord) []models.MedicineRecord {
	out := make([]models.MedicineRecord, len(records))
	copy(out, records)
	return out
}
