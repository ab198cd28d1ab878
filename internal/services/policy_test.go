package services

import (
	"testing"

	"botiquin_backend/internal/models"
)

func TestAccessPolicy(t *testing.T) {
	var policy AccessPolicy

	cases := []struct {
		role   string
		action Action
		want   bool
	}{
		{models.RoleAdmin, ActionView, true},
		{models.RoleAdmin, ActionWithdraw, true},
		{models.RoleAdmin, ActionAdjust, true},
		{models.RoleAdmin, ActionCreate, true},
		{models.RoleAdmin, ActionDelete, true},
		{models.RoleAdmin, ActionEditMetadata, true},

		{models.RoleMember, ActionView, true},
		{models.RoleMember, ActionWithdraw, true},
		{models.RoleMember, ActionAdjust, false},
		{models.RoleMember, ActionCreate, false},
		{models.RoleMember, ActionDelete, false},
		{models.RoleMember, ActionEditMetadata, false},

		{models.RoleViewer, ActionView, true},
		{models.RoleViewer, ActionWithdraw, true},
		{models.RoleViewer, ActionDelete, false},

		{"", ActionView, false},
		{"superuser", ActionView, false},
	}

	for _, tc := range cases {
		principal := models.Principal{Identifier: "u", Role: tc.role}
		if got := policy.Can(principal, tc.action); got != tc.want {
			t.Errorf("Can(role=%q, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}
