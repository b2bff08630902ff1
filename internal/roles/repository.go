package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdesk/staffdesk/internal/shared"
)

// RepositoryPort defines data access methods for role management. It writes
// the same collection the bootstrap engine reads, through its own narrower
// contract.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]Role, error)
	// ListVisible returns the roles a non-privileged actor may see: the ones
	// it authored plus its own assigned role, never the one named excludeName.
	ListVisible(ctx context.Context, author, ownRoleID, excludeName string) ([]Role, error)
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, role Role) error
	Update(ctx context.Context, role Role) error
	Delete(ctx context.Context, id string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, author, permissions, created_at, updated_at`

// ListAll returns every role, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// ListVisible returns the authorship-scoped listing for a non-privileged actor.
func (r *Repository) ListVisible(ctx context.Context, author, ownRoleID, excludeName string) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE (author = $1 OR id = NULLIF($2, '')::uuid) AND name_fold <> $3
		 ORDER BY created_at DESC`,
		author, ownRoleID, shared.FoldName(excludeName))
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// FindByID fetches a role by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1::uuid`, id)
	return scanRole(row)
}

// FindByName fetches a role by case-insensitive name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name_fold = $1`, shared.FoldName(name))
	return scanRole(row)
}

// Create inserts a role; a folded-name collision maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, name, name_fold, author, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		role.ID, role.Name, shared.FoldName(role.Name), role.Author, role.Permissions)
	return mapStoreError(err)
}

// Update overwrites the role's name and permission set.
func (r *Repository) Update(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, name_fold = $3, permissions = $4, updated_at = NOW() WHERE id = $1::uuid`,
		role.ID, role.Name, shared.FoldName(role.Name), role.Permissions)
	if err != nil {
		return mapStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the role. Principals keep their now-dangling reference;
// their sessions age out and the resolver treats the reference as empty.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	out := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Author, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		if role.Permissions == nil {
			role.Permissions = []string{}
		}
		out = append(out, role)
	}
	return out, rows.Err()
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

var _ RepositoryPort = (*Repository)(nil)
