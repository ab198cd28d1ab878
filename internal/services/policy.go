package services

import "botiquin_backend/internal/models"

// Action is something a principal can ask the mutation layer to do.
type Action string

const (
	ActionView         Action = "view"
	ActionWithdraw     Action = "withdraw"
	ActionAdjust       Action = "adjust"
	ActionCreate       Action = "create"
	ActionDelete       Action = "delete"
	ActionEditMetadata Action = "edit-metadata"
)

// AccessPolicy is the stateless role gate consulted before every
// mutation. Denial surfaces as an explicit authorization error in the
// service layer, never a silent no-op.
type AccessPolicy struct{}

// Can reports whether the principal's role permits the action. Viewing
// and withdrawing are open to any authenticated role; everything that
// changes metadata or existence is admin-only.
func (AccessPolicy) Can(principal models.Principal, action Action) bool {
	switch principal.Role {
	case models.RoleAdmin:
		return true
	case models.RoleMember, models.RoleViewer:
		return action == ActionView || action == ActionWithdraw
	default:
		return false
	}
}
