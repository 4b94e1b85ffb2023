package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/haulstack/haulstack/internal/platform/httpx"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
	"github.com/haulstack/haulstack/internal/users"
)

// Middleware resolves the session into an actor and gates routes on catalog
// permissions.
type Middleware struct {
	Service *Service
	Catalog *rbac.Catalog
	Logger  *slog.Logger
}

// RequireUser loads the session's account into the request context, or
// answers 401.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := m.resolveActor(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
			return
		}
		next.ServeHTTP(w, r.WithContext(users.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAny ensures the actor's role grants at least one of the given
// permissions. It implies RequireUser.
func (m Middleware) RequireAny(perms ...rbac.PermissionKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.resolveActor(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
				return
			}
			granted, err := m.grantedSet(actor.Role)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("resolve role permissions", slog.String("role", string(actor.Role)), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			for _, p := range perms {
				if _, ok := granted[p]; ok {
					next.ServeHTTP(w, r.WithContext(users.ContextWithActor(r.Context(), actor)))
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "your role does not allow this")
		})
	}
}

func (m Middleware) resolveActor(r *http.Request) (users.User, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return users.User{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return users.User{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return users.User{}, false
	}
	user, err := m.Service.Resolve(r.Context(), id)
	if err != nil {
		return users.User{}, false
	}
	return user, true
}

func (m Middleware) grantedSet(role rbac.RoleKey) (map[rbac.PermissionKey]struct{}, error) {
	perms, err := m.Catalog.RolePermissions(role)
	if err != nil {
		return nil, err
	}
	set := make(map[rbac.PermissionKey]struct{}, len(perms))
	for _, p := range perms {
		set[p.Key] = struct{}{}
	}
	return set, nil
}
