package users_test

import (
	"context"
	"sync"
	"time"

	"github.com/staffdesk/staffdesk/internal/roles"
	"github.com/staffdesk/staffdesk/internal/shared"
	"github.com/staffdesk/staffdesk/internal/users"
)

// memRepo is an in-memory stand-in for the PostgreSQL repository, mirroring
// its uniqueness, not-found, and keep-password-on-empty semantics.
type memRepo struct {
	mu    sync.Mutex
	users map[string]users.User // keyed by id

	failNext map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    make(map[string]users.User),
		failNext: make(map[string]error),
	}
}

func (r *memRepo) popFailure(op string) error {
	err := r.failNext[op]
	if err != nil {
		delete(r.failNext, op)
	}
	return err
}

func (r *memRepo) ListAll(ctx context.Context) ([]users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("ListAll"); err != nil {
		return nil, err
	}
	out := []users.User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memRepo) ListVisible(ctx context.Context, author, selfID, excludeUsername string) ([]users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("ListVisible"); err != nil {
		return nil, err
	}
	out := []users.User{}
	for _, u := range r.users {
		if shared.SameName(u.Username, excludeUsername) {
			continue
		}
		if u.Author == author || u.ID == selfID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("FindByUsername"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if shared.SameName(u.Username, username) {
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) Create(ctx context.Context, user users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Create"); err != nil {
		return err
	}
	for _, existing := range r.users {
		if shared.SameName(existing.Username, user.Username) {
			return shared.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return nil
}

func (r *memRepo) Update(ctx context.Context, user users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Update"); err != nil {
		return err
	}
	existing, ok := r.users[user.ID]
	if !ok {
		return shared.ErrNotFound
	}
	for _, other := range r.users {
		if other.ID != user.ID && shared.SameName(other.Username, user.Username) {
			return shared.ErrDuplicate
		}
	}
	if user.PasswordHash == "" {
		user.PasswordHash = existing.PasswordHash
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Delete"); err != nil {
		return err
	}
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

var _ users.RepositoryPort = (*memRepo)(nil)

// memRoleDir is an in-memory role directory.
type memRoleDir struct {
	mu    sync.Mutex
	roles map[string]roles.Role
}

func newMemRoleDir() *memRoleDir {
	return &memRoleDir{roles: make(map[string]roles.Role)}
}

func (d *memRoleDir) add(role roles.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[role.ID] = role
}

func (d *memRoleDir) FindByID(ctx context.Context, id string) (*roles.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	role, ok := d.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &role, nil
}

var _ users.RoleDirectory = (*memRoleDir)(nil)
