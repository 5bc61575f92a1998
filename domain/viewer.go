// Package domain contains core concepts of the messaging client.
// This file defines the authenticated viewer consuming the stream.
package domain

import "github.com/samber/lo"

// Roles granting platform-wide visibility.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Viewer is the authenticated identity the feed is computed against.
type Viewer struct {
	ID       string
	TenantID string
	Roles    []string
}

// Elevated reports whether the viewer holds a platform-wide role.
func (v Viewer) Elevated() bool {
	return lo.Contains(v.Roles, RoleAdmin) || lo.Contains(v.Roles, RoleSuperAdmin)
}

// Affiliated reports whether the viewer may hold a notification channel at
// all: either tenant-scoped or platform-wide.
func (v Viewer) Affiliated() bool {
	return v.TenantID != "" || v.Elevated()
}
