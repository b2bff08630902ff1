package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/platform/httpx"
)

// PermissionsHandler serves the static permission catalog. The role editor
// uses it to render grant checkboxes, so anyone allowed into either admin
// page may read it.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(catalog.PermRolesViewPage, catalog.PermUsersViewPage))
		r.Get("/", h.listPermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, "", map[string]any{
		"categories":  catalog.Grouped(),
		"permissions": catalog.All(),
	})
}
