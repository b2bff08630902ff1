package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/shared"
)

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	sessions := shared.NewSessionManager("handler-test-secret", "test_session", time.Hour, false)
	svc := auth.NewService(repo, newBootstrapper(repo), sessions, nil, nil, nil, nil)
	h := auth.NewHandler(nil, svc, sessions)

	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r, sessions
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginEndpointSetsSessionCookie(t *testing.T) {
	router, sessions := newAuthRouter(t, newMemRepo())

	body := strings.NewReader(`{"username":"Admin","password":"ems137245"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success    bool           `json:"success"`
		Message    string         `json:"message"`
		RedirectTo string         `json:"redirectTo"`
		User       map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "/dashboard", resp.RedirectTo)
	require.Equal(t, "Admin", resp.User["username"])

	cookie := sessionCookie(t, rec, "test_session")
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	sess, err := sessions.Verify(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, "Admin", sess.Username)
	require.ElementsMatch(t, catalog.IDs(), sess.Permissions)
}

func TestLoginEndpointAcceptsFormBody(t *testing.T) {
	router, _ := newAuthRouter(t, newMemRepo())

	form := url.Values{"username": {"Admin"}, "password": {"ems137245"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	router, _ := newAuthRouter(t, newMemRepo())

	body := strings.NewReader(`{"username":"nobody","password":"nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, sessionCookie(t, rec, "test_session"))

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, shared.ErrInvalidCredentials.Error(), resp.Message)
}

func TestLoginEndpointValidationErrors(t *testing.T) {
	router, _ := newAuthRouter(t, newMemRepo())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Contains(t, resp.Errors, "username")
	require.Contains(t, resp.Errors, "password")
}

func TestSessionEndpointRoundTrip(t *testing.T) {
	router, sessions := newAuthRouter(t, newMemRepo())

	token, _, err := sessions.Issue(shared.Session{
		PrincipalID: "p1",
		Username:    "alice",
		RoleID:      "r1",
		RoleName:    "HR",
		Permissions: []string{catalog.PermDashboardView},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User *struct {
			Username string `json:"username"`
			Role     struct {
				Name string `json:"name"`
			} `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	require.Equal(t, "alice", resp.User.Username)
	require.Equal(t, "HR", resp.User.Role.Name)
}

func TestSessionEndpointNullForTamperedToken(t *testing.T) {
	router, sessions := newAuthRouter(t, newMemRepo())

	token, _, err := sessions.Issue(shared.Session{PrincipalID: "p1", Username: "alice"})
	require.NoError(t, err)
	tampered := token + "A"

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: tampered})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User *json.RawMessage `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.User)

	// The stale cookie is cleared so the client stops presenting it.
	cookie := sessionCookie(t, rec, "test_session")
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
}

func TestLogoutEndpointIsIdempotent(t *testing.T) {
	router, _ := newAuthRouter(t, newMemRepo())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		cookie := sessionCookie(t, rec, "test_session")
		require.NotNil(t, cookie)
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	}
}
