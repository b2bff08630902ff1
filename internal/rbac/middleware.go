package rbac

import (
	"log/slog"
	"net/http"

	"github.com/staffdesk/staffdesk/internal/platform/httpx"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. It expects the
// session verification middleware to have already placed the decoded session
// in the request context; handlers behind these guards never hit the store.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// RequireSession rejects requests that carry no verified session.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.SessionFromContext(r.Context()) == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the session holds at least one of the given capabilities.
func (m Middleware) RequireAny(capabilities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			for _, capability := range capabilities {
				if sess.Can(capability) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, sess, capabilities)
		})
	}
}

// RequireAll ensures the session holds every one of the given capabilities.
func (m Middleware) RequireAll(capabilities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			var missing []string
			for _, capability := range capabilities {
				if !sess.Can(capability) {
					missing = append(missing, capability)
				}
			}
			if len(missing) > 0 {
				m.deny(w, sess, missing)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, sess *shared.Session, capabilities []string) {
	if m.Logger != nil {
		m.Logger.Info("authorization denied",
			slog.String("username", sess.Username),
			slog.Any("required", capabilities),
		)
	}
	httpx.RespondError(w, &shared.AuthzError{Message: "you do not have permission to perform this action"})
}
