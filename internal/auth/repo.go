package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdesk/staffdesk/internal/shared"
)

// Repository defines the credential-store operations the authenticator and
// bootstrap engine need. Lookups by username are exact-match; only uniqueness
// is case-insensitive, enforced by the store's fold indexes.
type Repository interface {
	FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error)
	InsertPrincipal(ctx context.Context, p Principal) error
	UpdatePrincipalRole(ctx context.Context, principalID, roleID string) error

	FindRoleByName(ctx context.Context, name string) (*Role, error)
	FindRoleByID(ctx context.Context, id string) (*Role, error)
	InsertRole(ctx context.Context, role Role) error
	ReplaceRolePermissions(ctx context.Context, roleID string, permissions []string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const principalColumns = `id, username, COALESCE(password_hash, ''), COALESCE(role_id::text, ''), author, created_at, updated_at`

// FindPrincipalByUsername fetches a principal by exact username.
func (r *PGRepository) FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE username = $1`, username)
	return scanPrincipal(row)
}

// InsertPrincipal creates a principal. A unique-index violation on the folded
// username surfaces as shared.ErrDuplicate so callers can treat "someone else
// already created it" as a typed outcome rather than a failure.
func (r *PGRepository) InsertPrincipal(ctx context.Context, p Principal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO principals (id, username, username_fold, password_hash, role_id, author, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, '')::uuid, $6, NOW(), NOW())`,
		p.ID, p.Username, shared.FoldName(p.Username), p.PasswordHash, p.RoleID, p.Author)
	return mapStoreError(err)
}

// UpdatePrincipalRole repoints a principal at a role.
func (r *PGRepository) UpdatePrincipalRole(ctx context.Context, principalID, roleID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE principals SET role_id = $2::uuid, updated_at = NOW() WHERE id = $1`,
		principalID, roleID)
	return mapStoreError(err)
}

const roleColumns = `id, name, author, permissions, created_at, updated_at`

// FindRoleByName fetches a role by case-insensitive name.
func (r *PGRepository) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name_fold = $1`, shared.FoldName(name))
	return scanRole(row)
}

// FindRoleByID fetches a role by id.
func (r *PGRepository) FindRoleByID(ctx context.Context, id string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1::uuid`, id)
	return scanRole(row)
}

// InsertRole creates a role, mapping unique violations to shared.ErrDuplicate.
func (r *PGRepository) InsertRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, name, name_fold, author, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		role.ID, role.Name, shared.FoldName(role.Name), role.Author, role.Permissions)
	return mapStoreError(err)
}

// ReplaceRolePermissions overwrites the stored capability set.
func (r *PGRepository) ReplaceRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET permissions = $2, updated_at = NOW() WHERE id = $1::uuid`,
		roleID, permissions)
	return mapStoreError(err)
}

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.RoleID, &p.Author, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Author, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	return &role, nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
