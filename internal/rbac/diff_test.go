package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func permKeys(perms []Permission) []PermissionKey {
	keys := make([]PermissionKey, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key)
	}
	return keys
}

func TestDiffSalesToManager(t *testing.T) {
	c := mustCatalog(t)
	diff, err := c.DiffPermissions(RoleSales, RoleManager)
	require.NoError(t, err)

	require.Contains(t, permKeys(diff.Added), PermDispatchAssign)
	require.Contains(t, permKeys(diff.Added), PermTeamRolesManage)
	require.Contains(t, permKeys(diff.Unchanged), PermOrdersView)
	// Manager is a strict superset of sales, so promotion takes nothing away.
	require.Empty(t, diff.Removed)
}

func TestDiffManagerToDispatcherRemovesPermissions(t *testing.T) {
	c := mustCatalog(t)
	diff, err := c.DiffPermissions(RoleManager, RoleDispatcher)
	require.NoError(t, err)
	require.Contains(t, permKeys(diff.Removed), PermTeamRolesManage)
	require.Contains(t, permKeys(diff.Removed), PermOrdersDelete)
	require.Contains(t, permKeys(diff.Unchanged), PermDispatchAssign)
	require.Empty(t, diff.Added)
}

func TestDiffAddedAndRemovedAreDisjointForAllPairs(t *testing.T) {
	c := mustCatalog(t)
	roles := c.Roles()
	for _, oldRole := range roles {
		for _, newRole := range roles {
			diff, err := c.DiffPermissions(oldRole.Key, newRole.Key)
			require.NoError(t, err)
			added := keySet(permKeys(diff.Added))
			for _, p := range diff.Removed {
				_, overlap := added[p.Key]
				require.False(t, overlap, "%s -> %s: %s in both added and removed", oldRole.Key, newRole.Key, p.Key)
			}
		}
	}
}

func TestDiffSameRoleIsAllUnchanged(t *testing.T) {
	c := mustCatalog(t)
	for _, role := range c.Roles() {
		diff, err := c.DiffPermissions(role.Key, role.Key)
		require.NoError(t, err)
		require.Empty(t, diff.Added)
		require.Empty(t, diff.Removed)

		full, err := c.RolePermissions(role.Key)
		require.NoError(t, err)
		require.Equal(t, permKeys(full), permKeys(diff.Unchanged))
	}
}

func TestDiffPreservesCatalogOrdering(t *testing.T) {
	c := mustCatalog(t)
	diff, err := c.DiffPermissions(RoleViewer, RoleBusinessOwner)
	require.NoError(t, err)

	position := make(map[PermissionKey]int, len(c.permOrder))
	for i, pk := range c.permOrder {
		position[pk] = i
	}
	for _, slice := range [][]Permission{diff.Added, diff.Removed, diff.Unchanged} {
		last := -1
		for _, p := range slice {
			require.Greater(t, position[p.Key], last)
			last = position[p.Key]
		}
	}
}

func TestDiffUnknownRole(t *testing.T) {
	c := mustCatalog(t)
	_, err := c.DiffPermissions(RoleSales, "ceo")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestWithoutInfrastructureOnlyStripsEverySlice(t *testing.T) {
	c := mustCatalog(t)
	diff, err := c.DiffPermissions(RoleBusinessOwner, RoleInfrastructureOwner)
	require.NoError(t, err)
	require.Contains(t, permKeys(diff.Added), PermPlatformManage)

	filtered := diff.WithoutInfrastructureOnly()
	for _, slice := range [][]Permission{filtered.Added, filtered.Removed, filtered.Unchanged} {
		for _, p := range slice {
			require.False(t, p.InfrastructureOnly, "%s leaked through the filter", p.Key)
		}
	}
}
