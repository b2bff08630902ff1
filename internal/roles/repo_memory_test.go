package roles_test

import (
	"context"
	"sync"
	"time"

	"github.com/staffdesk/staffdesk/internal/roles"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// memRepo is an in-memory stand-in for the PostgreSQL repository, mirroring
// its uniqueness and not-found semantics.
type memRepo struct {
	mu    sync.Mutex
	roles map[string]roles.Role // keyed by id

	failNext map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		roles:    make(map[string]roles.Role),
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

func (r *memRepo) ListAll(ctx context.Context) ([]roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("ListAll"); err != nil {
		return nil, err
	}
	out := []roles.Role{}
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memRepo) ListVisible(ctx context.Context, author, ownRoleID, excludeName string) ([]roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("ListVisible"); err != nil {
		return nil, err
	}
	out := []roles.Role{}
	for _, role := range r.roles {
		if shared.SameName(role.Name, excludeName) {
			continue
		}
		if role.Author == author || role.ID == ownRoleID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("FindByID"); err != nil {
		return nil, err
	}
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &role, nil
}

func (r *memRepo) FindByName(ctx context.Context, name string) (*roles.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("FindByName"); err != nil {
		return nil, err
	}
	for _, role := range r.roles {
		if shared.SameName(role.Name, name) {
			return &role, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) Create(ctx context.Context, role roles.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Create"); err != nil {
		return err
	}
	for _, existing := range r.roles {
		if shared.SameName(existing.Name, role.Name) {
			return shared.ErrDuplicate
		}
	}
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	r.roles[role.ID] = role
	return nil
}

func (r *memRepo) Update(ctx context.Context, role roles.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Update"); err != nil {
		return err
	}
	existing, ok := r.roles[role.ID]
	if !ok {
		return shared.ErrNotFound
	}
	for _, other := range r.roles {
		if other.ID != role.ID && shared.SameName(other.Name, role.Name) {
			return shared.ErrDuplicate
		}
	}
	role.CreatedAt = existing.CreatedAt
	role.UpdatedAt = time.Now()
	r.roles[role.ID] = role
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure("Delete"); err != nil {
		return err
	}
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

var _ roles.RepositoryPort = (*memRepo)(nil)
