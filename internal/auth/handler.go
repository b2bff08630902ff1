package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/staffdesk/staffdesk/internal/platform/httpx"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionUserPayload is the client-facing session shape.
type SessionUserPayload struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Role        RoleRef  `json:"role"`
	Permissions []string `json:"permissions"`
}

// RoleRef is the compact role reference embedded in session payloads.
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func sessionPayload(sess *shared.Session) SessionUserPayload {
	return SessionUserPayload{
		ID:          sess.PrincipalID,
		Username:    sess.Username,
		Role:        RoleRef{ID: sess.RoleID, Name: sess.RoleName},
		Permissions: sess.Permissions,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, err := h.decodeLoginForm(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string][]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			switch fieldErr.Field() {
			case "Username":
				fields["username"] = append(fields["username"], "Username is required.")
			case "Password":
				fields["password"] = append(fields["password"], "Password is required.")
			}
		}
		httpx.RespondError(w, &shared.ValidationError{Fields: fields})
		return
	}

	result, err := h.service.Login(r.Context(), form.Username, form.Password, r.RemoteAddr)
	if err != nil {
		var ce *shared.ConfigError
		var se *shared.StoreError
		if errors.As(err, &ce) || errors.As(err, &se) {
			h.logger.Error("login system failure", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.sessions.SetCookie(w, result.Token)
	httpx.OK(w, "Login successful! Preparing your dashboard...", map[string]any{
		"user":       sessionPayload(result.Session),
		"redirectTo": "/dashboard",
	})
}

// decodeLoginForm accepts both form-encoded and JSON bodies.
func (h *Handler) decodeLoginForm(r *http.Request) (loginForm, error) {
	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		var form loginForm
		if err := httpx.DecodeJSON(r, &form); err != nil {
			return loginForm{}, shared.NewValidationError("body", "Malformed request body.")
		}
		return form, nil
	}
	if err := r.ParseForm(); err != nil {
		return loginForm{}, shared.NewValidationError("body", "Malformed request body.")
	}
	return loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}, nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	httpx.OK(w, "Logged out successfully.", nil)
}

// handleSession returns the verified session's principal, or null when the
// token is absent, expired, or tampered with. The UI uses this to decide what
// to render; protected writes always re-verify on their own.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.FromRequest(r)
	if err != nil {
		h.sessions.ClearCookie(w)
		httpx.OK(w, "", map[string]any{"user": nil})
		return
	}
	httpx.OK(w, "", map[string]any{"user": sessionPayload(sess)})
}
