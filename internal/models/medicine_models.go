package models

import "time"

// MedicineRecord is the one persisted entity of consequence: a single
// medicine in the household cabinet.
type MedicineRecord struct {
	ID               string     `json:"id"`
	Name             string     `json:"name" binding:"required"`
	Stock            int        `json:"stock"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"` // nil when absent or unparseable in a legacy row
	Location         string     `json:"location"`
	ActiveIngredient string     `json:"active_ingredient,omitempty"`
	Description      string     `json:"description,omitempty"`
	LastModifiedBy   string     `json:"last_modified_by,omitempty"`

	// Position is the backend row index assigned at load time. It is a
	// snapshot value only; writes re-resolve it through reconciliation.
	Position int `json:"-"`

	// SearchText is the normalized name/location/description blob derived
	// on load for substring matching. Never persisted.
	SearchText string `json:"-"`
}

// Principal is the authenticated actor performing an action. The role is
// resolved once at login and carried in the token for the session.
type Principal struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
}

// Roles understood by the access policy.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// DrugInfo is the result of the optional enrichment lookup: stable facts
// about a drug name, safe to cache indefinitely.
type DrugInfo struct {
	ActiveIngredient string `json:"active_ingredient"`
	Description      string `json:"description"`
}
