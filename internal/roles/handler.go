package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/platform/httpx"
	"github.com/staffdesk/staffdesk/internal/rbac"
	"github.com/staffdesk/staffdesk/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(catalog.PermRolesViewPage))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(catalog.PermRolesAddNew))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(catalog.PermRolesEditAction))
		r.Put("/{id}", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(catalog.PermRolesDeleteRole))
		r.Delete("/{id}", h.deleteRole)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	list, err := h.service.List(r.Context(), sess)
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	httpx.OK(w, "", map[string]any{"roles": list})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	role, err := h.service.Create(r.Context(), sess, input)
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	httpx.OK(w, "Role created successfully.", map[string]any{"role": role})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	role, err := h.service.Update(r.Context(), sess, chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.OK(w, "Role updated successfully.", map[string]any{"role": role})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	httpx.OK(w, "Role deleted successfully.", nil)
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var input Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "Malformed request body."))
		return Input{}, false
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("name", "Role name must be between 2 and 64 characters."))
		return Input{}, false
	}
	return input, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var se *shared.StoreError
	if errors.As(err, &se) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
