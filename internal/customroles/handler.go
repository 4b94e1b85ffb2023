package customroles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haulstack/haulstack/internal/platform/httpx"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/users"
)

// Handler manages custom role endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	requireAny users.RouteGuard
	validator  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard users.RouteGuard) *Handler {
	return &Handler{logger: logger, service: service, requireAny: guard, validator: validator.New()}
}

// MountRoutes registers custom role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAny(rbac.PermTeamView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.requireAny(rbac.PermTeamRolesManage))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.deactivate)
	})
}

type createRequest struct {
	BaseRole    string   `json:"base_role" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Label       string   `json:"label" validate:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type updateRequest struct {
	Label       *string  `json:"label"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

type customRoleResponse struct {
	ID          string    `json:"id"`
	BusinessID  int64     `json:"business_id"`
	BaseRole    string    `json:"base_role"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	CreatedBy   int64     `json:"created_by"`
	ModifiedBy  int64     `json:"modified_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCustomRoleResponse(role CustomRole) customRoleResponse {
	perms := make([]string, 0, len(role.EnabledPermissions))
	for _, p := range role.EnabledPermissions {
		perms = append(perms, string(p))
	}
	return customRoleResponse{
		ID:          role.ID.String(),
		BusinessID:  role.BusinessID,
		BaseRole:    string(role.BaseRole),
		Name:        role.Name,
		Label:       role.Label,
		Description: role.Description,
		IsActive:    role.IsActive,
		Permissions: perms,
		CreatedBy:   role.CreatedBy,
		ModifiedBy:  role.ModifiedBy,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func permissionInput(keys []string) []rbac.PermissionKey {
	out := make([]rbac.PermissionKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, rbac.PermissionKey(k))
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	roles, err := h.service.List(r.Context(), actor.BusinessID, activeOnly)
	if err != nil {
		h.logger.Error("list custom roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]customRoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toCustomRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"custom_roles": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid custom role id")
		return
	}
	role, err := h.service.Get(r.Context(), actor.Subject(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCustomRoleResponse(role))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "base_role, name, and label are required")
		return
	}

	role, err := h.service.Create(r.Context(), CreateInput{
		Actor:              actor.Subject(),
		BusinessID:         actor.BusinessID,
		BaseRole:           rbac.RoleKey(req.BaseRole),
		Name:               req.Name,
		Label:              req.Label,
		Description:        req.Description,
		EnabledPermissions: permissionInput(req.Permissions),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCustomRoleResponse(role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid custom role id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	input := UpdateInput{
		Actor:       actor.Subject(),
		ID:          id,
		Label:       req.Label,
		Description: req.Description,
	}
	if req.Permissions != nil {
		input.EnabledPermissions = permissionInput(req.Permissions)
	}

	role, err := h.service.Update(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCustomRoleResponse(role))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid custom role id")
		return
	}
	if err := h.service.Deactivate(r.Context(), actor.Subject(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
