package rbac

import (
	"sort"
	"strings"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// Guard applies authorization rules on top of a verified session snapshot.
// All decisions read the snapshot only; nothing here touches the store, so a
// permission change takes effect at the next login rather than mid-session.
type Guard struct {
	reservedUsername string
	reservedRoleName string
}

// NewGuard constructs a Guard around the reserved identity names.
func NewGuard(reservedUsername, reservedRoleName string) *Guard {
	return &Guard{reservedUsername: reservedUsername, reservedRoleName: reservedRoleName}
}

// ReservedUsername returns the privileged principal's username.
func (g *Guard) ReservedUsername() string { return g.reservedUsername }

// ReservedRoleName returns the privileged role's name.
func (g *Guard) ReservedRoleName() string { return g.reservedRoleName }

// IsPrivileged reports whether the session belongs to the reserved principal.
// The comparison is exact; "admin" is an ordinary username.
func (g *Guard) IsPrivileged(sess *shared.Session) bool {
	return sess != nil && sess.IsPrivileged(g.reservedUsername)
}

// Can reports whether the session holds the given capability. The privileged
// principal's snapshot already contains the full catalog, so no special case
// is needed here.
func (g *Guard) Can(sess *shared.Session, capability string) bool {
	return sess != nil && sess.Can(capability)
}

// CheckGrantable enforces the delegation rule: a non-privileged actor may
// grant only capabilities it holds itself. Unknown capability IDs are
// rejected for everyone, the privileged principal included. The returned
// error names every offending capability.
func (g *Guard) CheckGrantable(sess *shared.Session, requested []string) error {
	var unknown []string
	for _, id := range requested {
		if !catalog.Contains(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return shared.NewValidationError("permissions", "Unknown permissions: "+strings.Join(unknown, ", "))
	}

	if g.IsPrivileged(sess) {
		return nil
	}
	if sess == nil {
		return shared.ErrUnauthenticated
	}

	var missing []string
	for _, id := range requested {
		if !sess.Can(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return shared.NewMissingPermissionsError(missing)
	}
	return nil
}

// CheckRoleAssignable enforces the authorship rule for role assignment: a
// non-privileged actor may attach a role to a user only if it authored that
// role. The reserved role is assignable only by the privileged principal.
func (g *Guard) CheckRoleAssignable(sess *shared.Session, roleName, roleAuthor string) error {
	if g.IsPrivileged(sess) {
		return nil
	}
	if sess == nil {
		return shared.ErrUnauthenticated
	}
	if shared.SameName(roleName, g.reservedRoleName) {
		return shared.ErrReservedRole
	}
	if roleAuthor != sess.Username {
		return &shared.AuthzError{Message: "you can only assign roles you created"}
	}
	return nil
}
