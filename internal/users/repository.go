package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdesk/staffdesk/internal/shared"
)

// RepositoryPort defines data access methods for user management.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]User, error)
	// ListVisible returns the users a non-privileged actor may see: itself
	// plus the users it authored, never the one named excludeUsername.
	ListVisible(ctx context.Context, author, selfID, excludeUsername string) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, user User) error
	// Update writes username and role; an empty PasswordHash keeps the
	// stored credential.
	Update(ctx context.Context, user User) error
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

const userColumns = `p.id, p.username, COALESCE(p.password_hash, ''), COALESCE(p.role_id::text, ''), COALESCE(r.name, ''), p.author, p.created_at, p.updated_at`
const userJoin = `FROM principals p LEFT JOIN roles r ON r.id = p.role_id`

// ListAll returns every user, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` `+userJoin+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListVisible returns the authorship-scoped listing for a non-privileged actor.
func (r *Repository) ListVisible(ctx context.Context, author, selfID, excludeUsername string) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` `+userJoin+`
		 WHERE (p.author = $1 OR p.id = NULLIF($2, '')::uuid) AND p.username_fold <> $3
		 ORDER BY p.created_at DESC`,
		author, selfID, shared.FoldName(excludeUsername))
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// FindByID fetches a user by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` `+userJoin+` WHERE p.id = $1::uuid`, id)
	return scanUser(row)
}

// FindByUsername fetches a user by case-insensitive username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` `+userJoin+` WHERE p.username_fold = $1`,
		shared.FoldName(username))
	return scanUser(row)
}

// Create inserts a user; a folded-username collision maps to shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, user User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO principals (id, username, username_fold, password_hash, role_id, author, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, '')::uuid, $6, NOW(), NOW())`,
		user.ID, user.Username, shared.FoldName(user.Username), user.PasswordHash, user.RoleID, user.Author)
	return mapStoreError(err)
}

// Update overwrites username and role; the password only when a new hash is set.
func (r *Repository) Update(ctx context.Context, user User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE principals
		 SET username = $2, username_fold = $3, role_id = NULLIF($4, '')::uuid,
		     password_hash = COALESCE(NULLIF($5, ''), password_hash), updated_at = NOW()
		 WHERE id = $1::uuid`,
		user.ID, user.Username, shared.FoldName(user.Username), user.RoleID, user.PasswordHash)
	if err != nil {
		return mapStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the user.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.Author, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.Author, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
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
