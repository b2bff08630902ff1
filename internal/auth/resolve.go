package auth

import "github.com/staffdesk/staffdesk/internal/catalog"

// ResolvePermissions computes the effective permission set for a principal.
// The reserved principal always receives the full catalog regardless of what
// the stored role says, so a corrupted role document can never leave it
// under-privileged. Everyone else gets the role's stored set verbatim; a
// dangling role reference resolves to the empty set.
//
// Pure given its inputs; performs no I/O.
func ResolvePermissions(reservedUsername string, p *Principal, role *Role) []string {
	if p != nil && p.Username == reservedUsername {
		return catalog.IDs()
	}
	if role == nil || role.Permissions == nil {
		return []string{}
	}
	out := make([]string, len(role.Permissions))
	copy(out, role.Permissions)
	return out
}
