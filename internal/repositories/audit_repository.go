package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/models"
	"botiquin_backend/pkg/utils"
)

// Audit sheet columns. The ledger is append-only: this repository exposes
// no update or delete, and nothing else writes the sheet.
const (
	auditFieldTimestamp  = "timestamp"
	auditFieldPrincipal  = "principal"
	auditFieldAction     = "action"
	auditFieldRecordName = "record_name"
	auditFieldRecordID   = "record_id"
	auditFieldStock      = "resulting_stock"
)

// CanonicalAuditHeader is the header written when a fresh audit sheet is
// bootstrapped.
func CanonicalAuditHeader() []string {
	return []string{
		auditFieldTimestamp, auditFieldPrincipal, auditFieldAction,
		auditFieldRecordName, auditFieldRecordID, auditFieldStock,
	}
}

var auditHeaderAliases = map[string]string{
	"timestamp":        auditFieldTimestamp,
	"fecha":            auditFieldTimestamp,
	"principal":        auditFieldPrincipal,
	"usuario":          auditFieldPrincipal,
	"action":           auditFieldAction,
	"accion":           auditFieldAction,
	"record name":      auditFieldRecordName,
	"medicamento":      auditFieldRecordName,
	"record id":        auditFieldRecordID,
	"resulting stock":  auditFieldStock,
	"stock resultante": auditFieldStock,
}

const auditTimestampLayout = time.RFC3339

// AuditRepository is the append-only event ledger.
type AuditRepository interface {
	Append(ctx context.Context, event models.AuditEvent) error
	// Recent returns up to n events, most recent first.
	Recent(ctx context.Context, n int) ([]models.AuditEvent, error)
}

type auditRepository struct {
	store backend.RowStore
}

// NewAuditRepository creates a ledger over the given backend.
func NewAuditRepository(store backend.RowStore) AuditRepository {
	return &auditRepository{store: store}
}

func (r *auditRepository) Append(ctx context.Context, event models.AuditEvent) error {
	header, _, err := r.store.ReadAll(ctx, backend.SheetAudit)
	if err != nil {
		return err
	}
	cols := mapAuditHeader(header)

	cells := make([]string, len(header))
	put := func(field, value string) {
		if col, ok := cols[field]; ok && col >= 0 {
			cells[col] = value
		}
	}
	put(auditFieldTimestamp, event.Timestamp.Format(auditTimestampLayout))
	put(auditFieldPrincipal, event.Principal)
	put(auditFieldAction, event.Action)
	put(auditFieldRecordName, event.RecordName)
	put(auditFieldRecordID, event.RecordID)
	if event.ResultingStock != nil {
		put(auditFieldStock, strconv.Itoa(*event.ResultingStock))
	}

	return r.store.AppendRow(ctx, backend.SheetAudit, cells)
}

func (r *auditRepository) Recent(ctx context.Context, n int) ([]models.AuditEvent, error) {
	header, rows, err := r.store.ReadAll(ctx, backend.SheetAudit)
	if err != nil {
		return nil, err
	}
	cols := mapAuditHeader(header)

	events := make([]models.AuditEvent, 0, len(rows))
	for _, row := range rows {
		ev := models.AuditEvent{
			Principal:  cell(row, cols[auditFieldPrincipal]),
			Action:     cell(row, cols[auditFieldAction]),
			RecordName: cell(row, cols[auditFieldRecordName]),
			RecordID:   cell(row, cols[auditFieldRecordID]),
		}
		if ts, err := time.Parse(auditTimestampLayout, cell(row, cols[auditFieldTimestamp])); err == nil {
			ev.Timestamp = ts
		}
		if raw := strings.TrimSpace(cell(row, cols[auditFieldStock])); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				ev.ResultingStock = &v
			}
		}
		events = append(events, ev)
	}

	// Insertion order is chronological; reverse for most-recent-first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if n > 0 && len(events) > n {
		events = events[:n]
	}
	return events, nil
}

func mapAuditHeader(header []string) map[string]int {
	cols := map[string]int{
		auditFieldTimestamp: -1, auditFieldPrincipal: -1, auditFieldAction: -1,
		auditFieldRecordName: -1, auditFieldRecordID: -1, auditFieldStock: -1,
	}
	for i, label := range header {
		if field, ok := auditHeaderAliases[utils.NormalizeLabel(label)]; ok {
			if cols[field] == -1 {
				cols[field] = i
			}
		}
	}
	return cols
}
