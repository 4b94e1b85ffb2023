package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog()
	require.NoError(t, err)
	return c
}

func TestBusinessOwnerPromotesSalesToManager(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleSales},
		RequestedRole: RoleManager,
	})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.False(t, dec.RequiresApproval)
	require.Empty(t, dec.Reason)
}

func TestManagerCannotPromoteToBusinessOwner(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleManager},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleSales},
		RequestedRole: RoleBusinessOwner,
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Equal(t, ReasonInsufficientGrant, dec.Reason)
}

func TestActorCannotManageMorePrivilegedTarget(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleManager},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleBusinessOwner},
		RequestedRole: RoleSales,
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Equal(t, ReasonInsufficientManage, dec.Reason)
}

func TestSelfChangeDenied(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 7, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 7, BusinessID: 10, Role: RoleBusinessOwner},
		RequestedRole: RoleManager,
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Equal(t, ReasonSelfChange, dec.Reason)
}

func TestNoOpAllowedWithoutReason(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 7, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 7, BusinessID: 10, Role: RoleSales},
		RequestedRole: RoleSales,
	})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Empty(t, dec.Reason)
	require.False(t, dec.RequiresApproval)
}

func TestBusinessActorCannotAssignPlatformRole(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleSales},
		RequestedRole: RolePlatformAdmin,
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	// Hierarchy outranks scope: platform_admin sits above business_owner, so
	// the grant guard fires before the scope guard gets a say.
	require.Equal(t, ReasonInsufficientGrant, dec.Reason)
}

func TestBusinessActorCannotManageOtherBusiness(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, BusinessID: 11, Role: RoleSales},
		RequestedRole: RoleManager,
	})
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Equal(t, ReasonBusinessMismatch, dec.Reason)
}

func TestOwnerPromotionByNonOwnerRequiresApproval(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, Role: RolePlatformAdmin},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleManager},
		RequestedRole: RoleBusinessOwner,
	})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.True(t, dec.RequiresApproval)
}

func TestOwnerPromotionByOwnerNeedsNoApproval(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleManager},
		RequestedRole: RoleBusinessOwner,
	})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.False(t, dec.RequiresApproval)
}

func TestInfrastructureActorCanReachAcrossBusinesses(t *testing.T) {
	c := mustCatalog(t)
	dec, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, Role: RoleInfrastructureOwner},
		Target:        Subject{UserID: 2, BusinessID: 42, Role: RoleViewer},
		RequestedRole: RoleManager,
	})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
}

func TestUnknownRoleKeyFails(t *testing.T) {
	c := mustCatalog(t)
	_, err := c.CanChangeRole(RoleChangeRequest{
		Actor:         Subject{UserID: 1, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, Role: RoleSales},
		RequestedRole: "superuser",
	})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestDecisionIsIdempotent(t *testing.T) {
	c := mustCatalog(t)
	req := RoleChangeRequest{
		Actor:         Subject{UserID: 1, BusinessID: 10, Role: RoleBusinessOwner},
		Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleSales},
		RequestedRole: RoleManager,
	}
	first, err := c.CanChangeRole(req)
	require.NoError(t, err)
	second, err := c.CanChangeRole(req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestHierarchyGuardHoldsForEveryPair(t *testing.T) {
	c := mustCatalog(t)
	roles := c.Roles()
	for _, actor := range roles {
		for _, requested := range roles {
			if actor.HierarchyLevel <= requested.HierarchyLevel {
				continue
			}
			dec, err := c.CanChangeRole(RoleChangeRequest{
				Actor:         Subject{UserID: 1, BusinessID: 10, Role: actor.Key},
				Target:        Subject{UserID: 2, BusinessID: 10, Role: RoleViewer},
				RequestedRole: requested.Key,
			})
			require.NoError(t, err)
			require.False(t, dec.Allowed, "actor %s must not grant %s", actor.Key, requested.Key)
		}
	}
}
