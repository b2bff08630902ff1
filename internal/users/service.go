package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/rbac"
	"github.com/staffdesk/staffdesk/internal/roles"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// RoleDirectory resolves role references during user writes. The roles
// repository satisfies it.
type RoleDirectory interface {
	FindByID(ctx context.Context, id string) (*roles.Role, error)
}

// Service handles user business logic: credential hashing, authorship
// scoping, the role-assignment rule, and protection of the reserved
// principal.
type Service struct {
	repo     RepositoryPort
	rolesDir RoleDirectory
	guard    *rbac.Guard
	audit    shared.Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, rolesDir RoleDirectory, guard *rbac.Guard, audit shared.Recorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, rolesDir: rolesDir, guard: guard, audit: audit, logger: logger}
}

// List returns the users visible to the session: everyone for the privileged
// principal, otherwise the actor itself plus the users it authored, with the
// reserved principal always excluded.
func (s *Service) List(ctx context.Context, sess *shared.Session) ([]User, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	if s.guard.IsPrivileged(sess) {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListVisible(ctx, sess.Username, sess.PrincipalID, s.guard.ReservedUsername())
}

// Create makes a new user authored by the session's principal.
func (s *Service) Create(ctx context.Context, sess *shared.Session, input CreateInput) (*User, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	username := strings.TrimSpace(input.Username)
	if err := validateCredentials(username, input.Password, input.ConfirmPassword, true); err != nil {
		return nil, err
	}
	if shared.SameName(username, s.guard.ReservedUsername()) {
		return nil, shared.ErrReservedPrincipal
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, shared.NewValidationError("username", "This username is already taken.")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewStoreError("username check", err)
	}

	role, err := s.assignableRole(ctx, sess, input.RoleID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewStoreError("hash password", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		RoleName:     role.Name,
		Author:       sess.Username,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, shared.NewValidationError("username", "This username is already taken.")
		}
		return nil, shared.NewStoreError("create user", err)
	}
	s.recordAudit(ctx, sess, "users.create", user.ID)
	user.PasswordHash = ""
	return &user, nil
}

// Update rewrites a user's username and role, and the password when one is
// supplied. Edits to the reserved principal keep its username and role fixed;
// only its password can change, and only through the privileged principal.
func (s *Service) Update(ctx context.Context, sess *shared.Session, id string, input UpdateInput) (*User, error) {
	if sess == nil {
		return nil, shared.ErrUnauthenticated
	}
	existing, err := s.findVisible(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	if shared.SameName(existing.Username, s.guard.ReservedUsername()) {
		return s.updateReserved(ctx, sess, existing, input)
	}

	username := strings.TrimSpace(input.Username)
	if err := validateCredentials(username, input.Password, input.ConfirmPassword, false); err != nil {
		return nil, err
	}
	if shared.SameName(username, s.guard.ReservedUsername()) {
		return nil, shared.ErrReservedPrincipal
	}
	if other, err := s.repo.FindByUsername(ctx, username); err == nil && other.ID != existing.ID {
		return nil, shared.NewValidationError("username", "This username is already taken.")
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewStoreError("username check", err)
	}

	role, err := s.assignableRole(ctx, sess, input.RoleID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Username = username
	updated.RoleID = role.ID
	updated.RoleName = role.Name
	updated.PasswordHash = ""
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, shared.NewStoreError("hash password", err)
		}
		updated.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, shared.NewValidationError("username", "This username is already taken.")
		}
		return nil, shared.NewStoreError("update user", err)
	}
	s.recordAudit(ctx, sess, "users.update", updated.ID)
	updated.PasswordHash = ""
	return &updated, nil
}

// Delete removes a user. The reserved principal is never deletable.
func (s *Service) Delete(ctx context.Context, sess *shared.Session, id string) error {
	if sess == nil {
		return shared.ErrUnauthenticated
	}
	existing, err := s.findVisible(ctx, sess, id)
	if err != nil {
		return err
	}
	if shared.SameName(existing.Username, s.guard.ReservedUsername()) {
		return shared.ErrReservedPrincipal
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return shared.NewStoreError("delete user", err)
	}
	s.recordAudit(ctx, sess, "users.delete", id)
	return nil
}

// updateReserved coerces edits to the reserved principal back to its fixed
// identity. A new password is accepted; everything else stays as-is.
func (s *Service) updateReserved(ctx context.Context, sess *shared.Session, existing *User, input UpdateInput) (*User, error) {
	coerced := *existing
	coerced.Username = s.guard.ReservedUsername()
	coerced.PasswordHash = ""
	if input.Password != "" {
		if err := validatePassword(input.Password, input.ConfirmPassword); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, shared.NewStoreError("hash password", err)
		}
		coerced.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, coerced); err != nil {
		return nil, shared.NewStoreError("update reserved user", err)
	}
	s.recordAudit(ctx, sess, "users.update", coerced.ID)
	coerced.PasswordHash = ""
	return &coerced, nil
}

// assignableRole resolves a role reference and applies the assignment rules:
// the reserved role belongs only to the reserved principal and is never
// assignable here, and a non-privileged actor may assign only roles it
// authored.
func (s *Service) assignableRole(ctx context.Context, sess *shared.Session, roleID string) (*roles.Role, error) {
	if strings.TrimSpace(roleID) == "" {
		return nil, shared.NewValidationError("roleId", "A role is required.")
	}
	role, err := s.rolesDir.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("roleId", "The selected role does not exist.")
		}
		return nil, shared.NewStoreError("role lookup", err)
	}
	if shared.SameName(role.Name, s.guard.ReservedRoleName()) {
		return nil, shared.ErrReservedRole
	}
	if err := s.guard.CheckRoleAssignable(sess, role.Name, role.Author); err != nil {
		return nil, err
	}
	return role, nil
}

// findVisible resolves a user id for mutation under the session's authorship
// scope. The reserved principal stays visible so its protections surface as
// explicit errors; for a non-privileged actor everything else it did not
// author reads as not found.
func (s *Service) findVisible(ctx context.Context, sess *shared.Session, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewStoreError("user lookup", err)
	}
	if s.guard.IsPrivileged(sess) {
		return user, nil
	}
	if shared.SameName(user.Username, s.guard.ReservedUsername()) {
		return nil, shared.ErrReservedPrincipal
	}
	if user.Author != sess.Username {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, sess *shared.Session, action, entityID string) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor: sess.Username, Action: action, Entity: "principal", EntityID: entityID,
	})
	if err != nil {
		s.logger.Warn("audit user action", slog.String("action", action), slog.Any("error", err))
	}
}

func validateCredentials(username, password, confirm string, passwordRequired bool) error {
	fields := map[string][]string{}
	if len(username) < 3 {
		fields["username"] = append(fields["username"], "Username must be at least 3 characters.")
	}
	if password == "" && passwordRequired {
		fields["password"] = append(fields["password"], "Password is required.")
	}
	if password != "" {
		if len(password) < 6 {
			fields["password"] = append(fields["password"], "Password must be at least 6 characters.")
		}
		if password != confirm {
			fields["confirmPassword"] = append(fields["confirmPassword"], "Passwords do not match.")
		}
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

func validatePassword(password, confirm string) error {
	fields := map[string][]string{}
	if len(password) < 6 {
		fields["password"] = append(fields["password"], "Password must be at least 6 characters.")
	}
	if password != confirm {
		fields["confirmPassword"] = append(fields["confirmPassword"], "Passwords do not match.")
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}
