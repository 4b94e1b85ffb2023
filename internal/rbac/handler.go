package rbac

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/haulstack/haulstack/internal/platform/httpx"
)

// Handler serves the read-only role and permission catalog.
type Handler struct {
	catalog *Catalog
	titler  cases.Caser
}

// NewHandler builds a Handler over the given catalog.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog, titler: cases.Title(language.English)}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{key}", h.getRole)
	r.Get("/permissions", h.listPermissions)
}

type roleResponse struct {
	Key            string   `json:"key"`
	Label          string   `json:"label"`
	Scope          string   `json:"scope"`
	HierarchyLevel int      `json:"hierarchy_level"`
	Customizable   bool     `json:"customizable"`
	Permissions    []string `json:"permissions"`
}

type permissionResponse struct {
	Key                string `json:"key"`
	Description        string `json:"description"`
	InfrastructureOnly bool   `json:"infrastructure_only"`
}

type moduleResponse struct {
	Module      string               `json:"module"`
	Label       string               `json:"label"`
	Permissions []permissionResponse `json:"permissions"`
}

func toRoleResponse(role Role) roleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, string(p))
	}
	return roleResponse{
		Key:            string(role.Key),
		Label:          role.Label,
		Scope:          string(role.Scope),
		HierarchyLevel: role.HierarchyLevel,
		Customizable:   role.Customizable,
		Permissions:    perms,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.catalog.Roles()
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	key := RoleKey(chi.URLParam(r, "key"))
	role, err := h.catalog.GetRole(key)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups := h.catalog.PermissionsByModule()
	out := make([]moduleResponse, 0, len(groups))
	for _, g := range groups {
		perms := make([]permissionResponse, 0, len(g.Permissions))
		for _, p := range g.Permissions {
			perms = append(perms, permissionResponse{
				Key:                string(p.Key),
				Description:        p.Description,
				InfrastructureOnly: p.InfrastructureOnly,
			})
		}
		out = append(out, moduleResponse{
			Module:      g.Module,
			Label:       h.moduleLabel(g.Module),
			Permissions: perms,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": out})
}

// moduleLabel turns a module key such as "custom_roles" into a display label
// such as "Custom Roles".
func (h *Handler) moduleLabel(module string) string {
	return h.titler.String(strings.ReplaceAll(module, "_", " "))
}
