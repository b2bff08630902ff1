package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/shared"
)

func newService(repo auth.Repository) *auth.Service {
	b := newBootstrapper(repo)
	sessions := shared.NewSessionManager("service-test-secret", "test_session", time.Hour, false)
	return auth.NewService(repo, b, sessions, nil, nil, nil, nil)
}

// seedUser inserts a non-privileged principal with its own role.
func seedUser(t *testing.T, repo *memRepo, username, password string, perms []string) (auth.Principal, auth.Role) {
	t.Helper()
	role := auth.Role{
		ID:          uuid.NewString(),
		Name:        username + "-role",
		Author:      "Admin",
		Permissions: perms,
	}
	require.NoError(t, repo.InsertRole(context.Background(), role))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	principal := auth.Principal{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		Author:       "Admin",
	}
	require.NoError(t, repo.InsertPrincipal(context.Background(), principal))
	return principal, role
}

func TestFirstReservedLoginBootstrapsEverything(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)

	result, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, reservedName, result.Session.Username)
	require.Equal(t, reservedName, result.Session.RoleName)
	require.ElementsMatch(t, catalog.IDs(), result.Session.Permissions)
	require.Equal(t, 1, repo.roleCount())
	require.Equal(t, 1, repo.principalCount())

	// Second login: same shape, nothing new created.
	again, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, result.Session.PrincipalID, again.Session.PrincipalID)
	require.Equal(t, result.Session.RoleID, again.Session.RoleID)
	require.Equal(t, 1, repo.roleCount())
	require.Equal(t, 1, repo.principalCount())
}

func TestLoginValidatesEmptyFields(t *testing.T) {
	svc := newService(newMemRepo())

	_, err := svc.Login(context.Background(), "", "", "10.0.0.1:1")
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "username")
	require.Contains(t, ve.Fields, "password")
}

func TestLoginEnumerationResistance(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	seedUser(t, repo, "alice", "correct-horse", []string{catalog.PermDashboardView})

	_, missingErr := svc.Login(context.Background(), "nonexistent", "x", "10.0.0.1:1")
	_, wrongErr := svc.Login(context.Background(), "alice", "wrong-password", "10.0.0.1:1")

	require.ErrorIs(t, missingErr, shared.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
	require.Equal(t, missingErr.Error(), wrongErr.Error())
}

func TestReservedLoginIsCaseSensitiveTrigger(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)

	// "admin" is not the reserved username, so no bootstrap runs and the
	// login fails generically.
	_, err := svc.Login(context.Background(), "admin", defaultPassword, "10.0.0.1:1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Equal(t, 0, repo.roleCount())
	require.Equal(t, 0, repo.principalCount())
}

func TestLoginReturnsRoleSnapshot(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	perms := []string{catalog.PermEmployeeViewListPage, catalog.PermDashboardView}
	principal, role := seedUser(t, repo, "alice", "correct-horse", perms)

	result, err := svc.Login(context.Background(), "alice", "correct-horse", "10.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, principal.ID, result.Session.PrincipalID)
	require.Equal(t, role.ID, result.Session.RoleID)
	require.ElementsMatch(t, perms, result.Session.Permissions)
}

func TestPrivilegedResolverExemption(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)

	_, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)

	// Corrupt the stored privileged role between logins. Bootstrap heals it,
	// and even before that the resolver never under-privileges the reserved
	// principal.
	role, err := repo.FindRoleByName(context.Background(), reservedName)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceRolePermissions(context.Background(), role.ID, []string{catalog.PermDashboardView}))

	result, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)
	require.ElementsMatch(t, catalog.IDs(), result.Session.Permissions)
}

func TestDanglingRoleYieldsEmptyPermissions(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	principal, role := seedUser(t, repo, "alice", "correct-horse", []string{catalog.PermDashboardView})

	// Delete the role out from under the principal.
	repo.mu.Lock()
	delete(repo.roles, role.ID)
	repo.mu.Unlock()

	result, err := svc.Login(context.Background(), "alice", "correct-horse", "10.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, principal.ID, result.Session.PrincipalID)
	require.Empty(t, result.Session.Permissions)
	require.Empty(t, result.Session.RoleID)
}

func TestReservedDanglingRoleIsRepaired(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)

	_, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)

	// Point the reserved principal at a role id that does not resolve.
	principal, err := repo.FindPrincipalByUsername(context.Background(), reservedName)
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePrincipalRole(context.Background(), principal.ID, uuid.NewString()))

	result, err := svc.Login(context.Background(), reservedName, defaultPassword, "10.0.0.1:1")
	require.NoError(t, err)
	require.Equal(t, reservedName, result.Session.RoleName)
	require.ElementsMatch(t, catalog.IDs(), result.Session.Permissions)

	repaired, err := repo.FindPrincipalByUsername(context.Background(), reservedName)
	require.NoError(t, err)
	require.Equal(t, result.Session.RoleID, repaired.RoleID)
}

func TestLoginStoreFailureIsNotCredentialFailure(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	seedUser(t, repo, "alice", "correct-horse", nil)

	repo.failNext["FindPrincipalByUsername"] = errStoreDown
	_, err := svc.Login(context.Background(), "alice", "correct-horse", "10.0.0.1:1")
	var se *shared.StoreError
	require.ErrorAs(t, err, &se)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginWithoutStoredHashFails(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	require.NoError(t, repo.InsertPrincipal(context.Background(), auth.Principal{
		ID:       uuid.NewString(),
		Username: "ghost",
		Author:   "Admin",
	}))

	_, err := svc.Login(context.Background(), "ghost", "anything", "10.0.0.1:1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
