package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/rbac"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// Service handles role business logic: authorship scoping, the delegation
// rule for grants, and protection of the reserved role.
type Service struct {
	repo   RepositoryPort
	guard  *rbac.Guard
	audit  shared.Recorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, guard *rbac.Guard, audit shared.Recorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, audit: audit, logger: logger}
}

// List returns the roles visible to the session: everything for the
// privileged principal, otherwise authored roles plus the actor's own
// assigned role, with the reserved role always excluded.
func (s *Service) List(ctx context.Context, sess *shared.Session) ([]Role, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	if s.guard.IsPrivileged(sess) {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListVisible(ctx, sess.Username, sess.RoleID, s.guard.ReservedRoleName())
}

// Create makes a new role authored by the session's principal.
func (s *Service) Create(ctx context.Context, sess *shared.Session, input Input) (*Role, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Role name is required.")
	}
	if shared.SameName(name, s.guard.ReservedRoleName()) {
		return nil, shared.ErrReservedRole
	}
	if err := s.guard.CheckGrantable(sess, input.Permissions); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, shared.NewValidationError("name", "A role with this name already exists.")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewStoreError("role name check", err)
	}

	role := Role{
		ID:          uuid.NewString(),
		Name:        name,
		Author:      sess.Username,
		Permissions: normalizeGrants(input.Permissions),
	}
	if err := s.repo.Create(ctx, role); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, shared.NewValidationError("name", "A role with this name already exists.")
		}
		return nil, shared.NewStoreError("create role", err)
	}
	s.recordAudit(ctx, sess, "roles.create", role.ID)
	return &role, nil
}

// Update renames a role and replaces its grants. Edits to the reserved role
// are coerced back to the reserved name and the full catalog rather than
// rejected, so the privileged role can never drift through this path.
func (s *Service) Update(ctx context.Context, sess *shared.Session, id string, input Input) (*Role, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	existing, err := s.findVisible(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	if shared.SameName(existing.Name, s.guard.ReservedRoleName()) {
		coerced := *existing
		coerced.Name = s.guard.ReservedRoleName()
		coerced.Permissions = catalog.IDs()
		if err := s.repo.Update(ctx, coerced); err != nil {
			return nil, shared.NewStoreError("update reserved role", err)
		}
		s.recordAudit(ctx, sess, "roles.update", coerced.ID)
		return &coerced, nil
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Role name is required.")
	}
	if shared.SameName(name, s.guard.ReservedRoleName()) {
		return nil, shared.ErrReservedRole
	}
	if err := s.guard.CheckGrantable(sess, input.Permissions); err != nil {
		return nil, err
	}
	if other, err := s.repo.FindByName(ctx, name); err == nil && other.ID != existing.ID {
		return nil, shared.NewValidationError("name", "A role with this name already exists.")
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewStoreError("role name check", err)
	}

	updated := *existing
	updated.Name = name
	updated.Permissions = normalizeGrants(input.Permissions)
	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, shared.NewValidationError("name", "A role with this name already exists.")
		}
		return nil, shared.NewStoreError("update role", err)
	}
	s.recordAudit(ctx, sess, "roles.update", updated.ID)
	return &updated, nil
}

// Delete removes a role. The reserved role is never deletable; the bootstrap
// engine would recreate it on the next privileged login anyway.
func (s *Service) Delete(ctx context.Context, sess *shared.Session, id string) error {
	if sess == nil {
		return shared.ErrUnauthenticated
	}
	existing, err := s.findVisible(ctx, sess, id)
	if err != nil {
		return err
	}
	if shared.SameName(existing.Name, s.guard.ReservedRoleName()) {
		return shared.ErrReservedRole
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return shared.NewStoreError("delete role", err)
	}
	s.recordAudit(ctx, sess, "roles.delete", id)
	return nil
}

// findVisible resolves a role id for mutation under the session's authorship
// scope. A non-privileged actor may touch only roles it authored; anything
// outside that scope reads as not found, except the reserved role, whose
// protection surfaces as an explicit error.
func (s *Service) findVisible(ctx context.Context, sess *shared.Session, id string) (*Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewStoreError("role lookup", err)
	}
	if s.guard.IsPrivileged(sess) {
		return role, nil
	}
	if shared.SameName(role.Name, s.guard.ReservedRoleName()) {
		return nil, shared.ErrReservedRole
	}
	if role.Author != sess.Username {
		return nil, shared.ErrNotFound
	}
	return role, nil
}

func (s *Service) recordAudit(ctx context.Context, sess *shared.Session, action, entityID string) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor: sess.Username, Action: action, Entity: "role", EntityID: entityID,
	})
	if err != nil {
		s.logger.Warn("audit role action", slog.String("action", action), slog.Any("error", err))
	}
}

// normalizeGrants deduplicates while preserving first-seen order.
func normalizeGrants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
