package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// memRepo is an in-memory credential store that mirrors the real store's
// behavior: case-insensitive unique indexes on usernames and role names, with
// duplicate inserts reported as shared.ErrDuplicate.
type memRepo struct {
	mu         sync.Mutex
	principals map[string]auth.Principal // keyed by folded username
	roles      map[string]auth.Role      // keyed by id

	// failNext maps operation names to an error returned once, for
	// store-failure paths.
	failNext map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		principals: make(map[string]auth.Principal),
		roles:      make(map[string]auth.Role),
		failNext:   make(map[string]error),
	}
}

func (r *memRepo) fail(op string) error {
	err := r.failNext[op]
	if err != nil {
		delete(r.failNext, op)
	}
	return err
}

func (r *memRepo) FindPrincipalByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindPrincipalByUsername"); err != nil {
		return nil, err
	}
	p, ok := r.principals[shared.FoldName(username)]
	if !ok || p.Username != username {
		return nil, shared.ErrNotFound
	}
	clone := p
	return &clone, nil
}

func (r *memRepo) InsertPrincipal(ctx context.Context, p auth.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("InsertPrincipal"); err != nil {
		return err
	}
	key := shared.FoldName(p.Username)
	if _, exists := r.principals[key]; exists {
		return shared.ErrDuplicate
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.principals[key] = p
	return nil
}

func (r *memRepo) UpdatePrincipalRole(ctx context.Context, principalID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdatePrincipalRole"); err != nil {
		return err
	}
	for key, p := range r.principals {
		if p.ID == principalID {
			p.RoleID = roleID
			p.UpdatedAt = time.Now()
			r.principals[key] = p
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memRepo) FindRoleByName(ctx context.Context, name string) (*auth.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindRoleByName"); err != nil {
		return nil, err
	}
	fold := shared.FoldName(name)
	for _, role := range r.roles {
		if shared.FoldName(role.Name) == fold {
			clone := role
			clone.Permissions = append([]string(nil), role.Permissions...)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) FindRoleByID(ctx context.Context, id string) (*auth.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindRoleByID"); err != nil {
		return nil, err
	}
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := role
	clone.Permissions = append([]string(nil), role.Permissions...)
	return &clone, nil
}

func (r *memRepo) InsertRole(ctx context.Context, role auth.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("InsertRole"); err != nil {
		return err
	}
	fold := shared.FoldName(role.Name)
	for _, existing := range r.roles {
		if shared.FoldName(existing.Name) == fold {
			return shared.ErrDuplicate
		}
	}
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	r.roles[role.ID] = role
	return nil
}

func (r *memRepo) ReplaceRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ReplaceRolePermissions"); err != nil {
		return err
	}
	role, ok := r.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	role.Permissions = append([]string(nil), permissions...)
	role.UpdatedAt = time.Now()
	r.roles[roleID] = role
	return nil
}

func (r *memRepo) roleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roles)
}

func (r *memRepo) principalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.principals)
}

var _ auth.Repository = (*memRepo)(nil)
