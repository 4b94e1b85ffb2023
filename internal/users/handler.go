package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/haulstack/haulstack/internal/platform/httpx"
	"github.com/haulstack/haulstack/internal/rbac"
)

// RouteGuard gates a route group on catalog permissions. It is satisfied by
// auth.Middleware.RequireAny.
type RouteGuard func(perms ...rbac.PermissionKey) func(http.Handler) http.Handler

// Handler manages team member endpoints: listing, role change preview, and
// role change execution.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	requireAny    RouteGuard
	recordOutcome func(outcome string)
	validator     *validator.Validate
}

// NewHandler builds Handler instance. recordOutcome may be nil.
func NewHandler(logger *slog.Logger, service *Service, guard RouteGuard, recordOutcome func(outcome string)) *Handler {
	return &Handler{logger: logger, service: service, requireAny: guard, recordOutcome: recordOutcome, validator: validator.New()}
}

// MountRoutes registers team member routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAny(rbac.PermTeamView))
		r.Get("/", h.listMembers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.requireAny(rbac.PermTeamRolesManage))
		r.Post("/{id}/role/preview", h.previewRoleChange)
		r.Post("/{id}/role", h.changeRole)
	})
}

type memberResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	BusinessID int64  `json:"business_id,omitempty"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
}

type roleChangeRequest struct {
	Role   string `json:"role" validate:"required"`
	Reason string `json:"reason"`
}

type decisionResponse struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

type diffResponse struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

type roleChangeResponse struct {
	Decision decisionResponse `json:"decision"`
	Diff     diffResponse     `json:"diff"`
	OldRole  string           `json:"old_role"`
	NewRole  string           `json:"new_role"`
	NoChange bool             `json:"no_change"`
	Applied  bool             `json:"applied"`
}

func toMemberResponse(u User) memberResponse {
	return memberResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		BusinessID: u.BusinessID,
		Role:       string(u.Role),
		IsActive:   u.IsActive,
	}
}

func permissionKeys(perms []rbac.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p.Key))
	}
	return out
}

func toRoleChangeResponse(result ChangeRoleResult) roleChangeResponse {
	return roleChangeResponse{
		Decision: decisionResponse{
			Allowed:          result.Decision.Allowed,
			Reason:           result.Decision.Reason,
			RequiresApproval: result.Decision.RequiresApproval,
		},
		Diff: diffResponse{
			Added:     permissionKeys(result.Diff.Added),
			Removed:   permissionKeys(result.Diff.Removed),
			Unchanged: permissionKeys(result.Diff.Unchanged),
		},
		OldRole:  string(result.OldRole),
		NewRole:  string(result.NewRole),
		NoChange: result.NoChange,
		Applied:  result.Applied,
	}
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	members, err := h.service.ListByBusiness(r.Context(), actor.BusinessID)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) previewRoleChange(w http.ResponseWriter, r *http.Request) {
	h.evaluateRoleChange(w, r, false)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	h.evaluateRoleChange(w, r, true)
}

func (h *Handler) evaluateRoleChange(w http.ResponseWriter, r *http.Request, apply bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	var req roleChangeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role is required")
		return
	}

	input := ChangeRoleInput{
		ActorID:       actor.ID,
		TargetID:      targetID,
		RequestedRole: rbac.RoleKey(req.Role),
		Reason:        req.Reason,
	}

	var result ChangeRoleResult
	if apply {
		result, err = h.service.ChangeRole(r.Context(), input)
	} else {
		result, err = h.service.PreviewRoleChange(r.Context(), input)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if apply && h.recordOutcome != nil {
		h.recordOutcome(roleChangeOutcome(result))
	}

	status := http.StatusOK
	if !result.Decision.Allowed && !result.NoChange {
		status = http.StatusForbidden
	}
	httpx.JSON(w, status, toRoleChangeResponse(result))
}

func roleChangeOutcome(result ChangeRoleResult) string {
	switch {
	case result.Applied:
		return "applied"
	case result.NoChange:
		return "no_change"
	default:
		return "denied"
	}
}
