package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// RepairMetrics counts self-healing actions. Nil-safe via NopMetrics.
type RepairMetrics interface {
	BootstrapRepair(kind string)
}

// NopMetrics discards metric events.
type NopMetrics struct{}

// BootstrapRepair implements RepairMetrics.
func (NopMetrics) BootstrapRepair(string) {}

// Bootstrapper ensures the privileged role and principal exist and are
// correctly provisioned. Every step is an idempotent upsert: racing logins
// converge on the same single role and principal because the store enforces
// case-insensitive uniqueness and duplicate-key inserts trigger a re-read
// instead of a failure.
type Bootstrapper struct {
	repo             Repository
	logger           *slog.Logger
	audit            shared.Recorder
	metrics          RepairMetrics
	reservedUsername string
	defaultPassword  string
}

// NewBootstrapper constructs a Bootstrapper.
func NewBootstrapper(repo Repository, logger *slog.Logger, audit shared.Recorder, metrics RepairMetrics, reservedUsername, defaultPassword string) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = shared.NopRecorder{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Bootstrapper{
		repo:             repo,
		logger:           logger,
		audit:            audit,
		metrics:          metrics,
		reservedUsername: reservedUsername,
		defaultPassword:  defaultPassword,
	}
}

// ReservedUsername returns the privileged username this engine provisions.
func (b *Bootstrapper) ReservedUsername() string { return b.reservedUsername }

// EnsureAdmin provisions the privileged role and principal, self-healing any
// drift, and returns the privileged role id. Store failures surface as
// configuration errors, never as invalid credentials.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context) (string, error) {
	role, err := b.ensureRole(ctx)
	if err != nil {
		return "", err
	}
	if err := b.ensurePrincipal(ctx, role.ID); err != nil {
		return "", err
	}
	return role.ID, nil
}

// EnsureRole runs only the role half of the bootstrap. The authenticator uses
// it to repair a reserved principal whose role reference no longer resolves.
func (b *Bootstrapper) EnsureRole(ctx context.Context) (*Role, error) {
	return b.ensureRole(ctx)
}

func (b *Bootstrapper) ensureRole(ctx context.Context) (*Role, error) {
	role, err := b.repo.FindRoleByName(ctx, b.reservedUsername)
	switch {
	case err == nil:
		if catalog.Matches(role.Permissions) {
			return role, nil
		}
		// Catalog drift: a later deployment added or removed capabilities.
		// Overwrite to match without requiring a manual migration.
		full := catalog.IDs()
		if err := b.repo.ReplaceRolePermissions(ctx, role.ID, full); err != nil {
			return nil, shared.NewConfigError("self-heal privileged role permissions", err)
		}
		b.metrics.BootstrapRepair("role_permissions")
		b.logger.Warn("privileged role permissions healed",
			slog.String("role_id", role.ID),
			slog.Int("stored", len(role.Permissions)),
			slog.Int("catalog", len(full)))
		if err := b.audit.Record(ctx, shared.AuditLog{
			Actor: SystemAuthor, Action: "bootstrap.heal_role", Entity: "role", EntityID: role.ID,
			Meta: map[string]any{"stored": len(role.Permissions), "catalog": len(full)},
		}); err != nil {
			b.logger.Warn("audit bootstrap heal", slog.Any("error", err))
		}
		role.Permissions = full
		return role, nil
	case errors.Is(err, shared.ErrNotFound):
		created := Role{
			ID:          uuid.NewString(),
			Name:        b.reservedUsername,
			Author:      SystemAuthor,
			Permissions: catalog.IDs(),
		}
		insertErr := b.repo.InsertRole(ctx, created)
		if insertErr == nil {
			b.logger.Info("privileged role created",
				slog.String("role_id", created.ID),
				slog.Int("permissions", len(created.Permissions)))
			if err := b.audit.Record(ctx, shared.AuditLog{
				Actor: SystemAuthor, Action: "bootstrap.create_role", Entity: "role", EntityID: created.ID,
			}); err != nil {
				b.logger.Warn("audit bootstrap create role", slog.Any("error", err))
			}
			return &created, nil
		}
		if errors.Is(insertErr, shared.ErrDuplicate) {
			// A concurrent login won the insert race; adopt its role.
			role, err := b.repo.FindRoleByName(ctx, b.reservedUsername)
			if err != nil {
				return nil, shared.NewConfigError("re-read privileged role after duplicate insert", err)
			}
			return role, nil
		}
		return nil, shared.NewConfigError("create privileged role", insertErr)
	default:
		return nil, shared.NewConfigError("look up privileged role", err)
	}
}

func (b *Bootstrapper) ensurePrincipal(ctx context.Context, roleID string) error {
	principal, err := b.repo.FindPrincipalByUsername(ctx, b.reservedUsername)
	switch {
	case err == nil:
		if principal.RoleID == roleID {
			return nil
		}
		// Stale or missing role reference: repair rather than fail.
		if err := b.repo.UpdatePrincipalRole(ctx, principal.ID, roleID); err != nil {
			return shared.NewConfigError("repair privileged principal role reference", err)
		}
		b.metrics.BootstrapRepair("principal_role")
		b.logger.Warn("privileged principal role reference healed",
			slog.String("principal_id", principal.ID),
			slog.String("role_id", roleID))
		if err := b.audit.Record(ctx, shared.AuditLog{
			Actor: SystemAuthor, Action: "bootstrap.heal_principal", Entity: "principal", EntityID: principal.ID,
		}); err != nil {
			b.logger.Warn("audit bootstrap heal principal", slog.Any("error", err))
		}
		return nil
	case errors.Is(err, shared.ErrNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(b.defaultPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return shared.NewConfigError("hash default privileged credential", hashErr)
		}
		created := Principal{
			ID:           uuid.NewString(),
			Username:     b.reservedUsername,
			PasswordHash: string(hash),
			RoleID:       roleID,
			Author:       SystemAuthor,
		}
		insertErr := b.repo.InsertPrincipal(ctx, created)
		if insertErr == nil {
			b.logger.Info("privileged principal created", slog.String("principal_id", created.ID))
			if err := b.audit.Record(ctx, shared.AuditLog{
				Actor: SystemAuthor, Action: "bootstrap.create_principal", Entity: "principal", EntityID: created.ID,
			}); err != nil {
				b.logger.Warn("audit bootstrap create principal", slog.Any("error", err))
			}
			return nil
		}
		if errors.Is(insertErr, shared.ErrDuplicate) {
			// Concurrent bootstrap created it; nothing left to do beyond
			// confirming it exists.
			if _, err := b.repo.FindPrincipalByUsername(ctx, b.reservedUsername); err != nil {
				return shared.NewConfigError("re-read privileged principal after duplicate insert", err)
			}
			return nil
		}
		return shared.NewConfigError("create privileged principal", insertErr)
	default:
		return shared.NewConfigError("look up privileged principal", err)
	}
}
