package models

import "time"

// Audit actions. One event is appended per successful mutation.
const (
	AuditActionCreate   = "CREATE"
	AuditActionWithdraw = "WITHDRAW"
	AuditActionAdjust   = "ADJUST"
	AuditActionDelete   = "DELETE"
)

// AuditEvent is one row of the append-only ledger. Events carry both the
// record name (the legacy sheet key) and the synthetic record id, so two
// co-existing records with the same name stay distinguishable.
type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Principal      string    `json:"principal"`
	Action         string    `json:"action"`
	RecordName     string    `json:"record_name"`
	RecordID       string    `json:"record_id,omitempty"`
	ResultingStock *int      `json:"resulting_stock"` // nil for DELETE
}
