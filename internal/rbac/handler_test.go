package rbac

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newCatalogRouter(t *testing.T) chi.Router {
	t.Helper()
	catalog, err := NewCatalog()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(catalog).MountRoutes(r)
	return r
}

func TestListRolesIncludesWholeCatalog(t *testing.T) {
	router := newCatalogRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, key := range []string{"infrastructure_owner", "business_owner", "manager", "dispatcher", "sales", "warehouse", "viewer", "platform_admin"} {
		require.Contains(t, body, `"key":"`+key+`"`)
	}
}

func TestGetRoleUnknownKeyIs404(t *testing.T) {
	router := newCatalogRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/superuser", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListPermissionsGroupsAndLabelsModules(t *testing.T) {
	router := newCatalogRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/permissions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `"module":"orders"`)
	require.Contains(t, body, `"label":"Orders"`)
	require.Contains(t, body, `"infrastructure_only":true`)

	// Modules come out alphabetically.
	require.Less(t, strings.Index(body, `"module":"chat"`), strings.Index(body, `"module":"orders"`))
}
