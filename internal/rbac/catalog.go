package rbac

import (
	"fmt"
	"sort"
)

// Role keys. Lower hierarchy level means more privileged.
const (
	RoleInfrastructureOwner RoleKey = "infrastructure_owner"
	RolePlatformAdmin       RoleKey = "platform_admin"
	RoleBusinessOwner       RoleKey = "business_owner"
	RoleManager             RoleKey = "manager"
	RoleDispatcher          RoleKey = "dispatcher"
	RoleSales               RoleKey = "sales"
	RoleWarehouse           RoleKey = "warehouse"
	RoleViewer              RoleKey = "viewer"
)

// ErrUnknownRole and ErrUnknownPermission flag lookups for keys that are not
// part of the catalog.
var (
	ErrUnknownRole       = fmt.Errorf("rbac: unknown role")
	ErrUnknownPermission = fmt.Errorf("rbac: unknown permission")
)

// ModuleGroup is one module's slice of the permission listing.
type ModuleGroup struct {
	Module      string
	Permissions []Permission
}

// Catalog is the read-only role and permission table. It is built once at
// startup and safe for concurrent use.
type Catalog struct {
	roles       map[RoleKey]Role
	roleOrder   []RoleKey
	permissions map[PermissionKey]Permission
	permOrder   []PermissionKey
}

// NewCatalog builds and validates the static catalog. It fails when a role
// references a permission that does not exist or when hierarchy levels do not
// strictly order the owner roles above everything else they govern.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{
		roles:       make(map[RoleKey]Role),
		permissions: make(map[PermissionKey]Permission),
	}
	for _, p := range catalogPermissions() {
		if _, dup := c.permissions[p.Key]; dup {
			return nil, fmt.Errorf("rbac: duplicate permission %q", p.Key)
		}
		c.permissions[p.Key] = p
		c.permOrder = append(c.permOrder, p.Key)
	}
	for _, r := range catalogRoles() {
		if _, dup := c.roles[r.Key]; dup {
			return nil, fmt.Errorf("rbac: duplicate role %q", r.Key)
		}
		for _, pk := range r.Permissions {
			if _, ok := c.permissions[pk]; !ok {
				return nil, fmt.Errorf("rbac: role %q references unknown permission %q", r.Key, pk)
			}
		}
		if r.Scope == ScopeBusiness {
			for _, pk := range r.Permissions {
				if c.permissions[pk].InfrastructureOnly {
					return nil, fmt.Errorf("rbac: business role %q carries infrastructure-only permission %q", r.Key, pk)
				}
			}
		}
		c.roles[r.Key] = r
		c.roleOrder = append(c.roleOrder, r.Key)
	}
	owner, ok := c.roles[RoleInfrastructureOwner]
	if !ok {
		return nil, fmt.Errorf("rbac: catalog is missing %q", RoleInfrastructureOwner)
	}
	for _, r := range c.roles {
		if r.Key != owner.Key && r.HierarchyLevel <= owner.HierarchyLevel {
			return nil, fmt.Errorf("rbac: role %q cannot outrank %q", r.Key, owner.Key)
		}
	}
	return c, nil
}

// GetRole returns the role for key or ErrUnknownRole.
func (c *Catalog) GetRole(key RoleKey) (Role, error) {
	r, ok := c.roles[key]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, key)
	}
	return r, nil
}

// GetPermission returns the permission for key or ErrUnknownPermission.
func (c *Catalog) GetPermission(key PermissionKey) (Permission, error) {
	p, ok := c.permissions[key]
	if !ok {
		return Permission{}, fmt.Errorf("%w: %q", ErrUnknownPermission, key)
	}
	return p, nil
}

// Roles returns all roles in declaration order.
func (c *Catalog) Roles() []Role {
	out := make([]Role, 0, len(c.roleOrder))
	for _, key := range c.roleOrder {
		out = append(out, c.roles[key])
	}
	return out
}

// PermissionsByModule groups the full permission set by module. Modules are
// sorted alphabetically; permissions keep their declaration order within a
// module, so the output is stable across calls.
func (c *Catalog) PermissionsByModule() []ModuleGroup {
	grouped := make(map[string][]Permission)
	for _, key := range c.permOrder {
		p := c.permissions[key]
		grouped[p.Module] = append(grouped[p.Module], p)
	}
	modules := make([]string, 0, len(grouped))
	for m := range grouped {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	out := make([]ModuleGroup, 0, len(modules))
	for _, m := range modules {
		out = append(out, ModuleGroup{Module: m, Permissions: grouped[m]})
	}
	return out
}

// RolePermissions resolves a role's permission keys to full permissions in
// catalog order.
func (c *Catalog) RolePermissions(key RoleKey) ([]Permission, error) {
	r, err := c.GetRole(key)
	if err != nil {
		return nil, err
	}
	member := make(map[PermissionKey]struct{}, len(r.Permissions))
	for _, pk := range r.Permissions {
		member[pk] = struct{}{}
	}
	out := make([]Permission, 0, len(r.Permissions))
	for _, pk := range c.permOrder {
		if _, ok := member[pk]; ok {
			out = append(out, c.permissions[pk])
		}
	}
	return out, nil
}

// GrantablePermissions returns the permissions of a base role that a
// business-scoped custom role may enable: the base set minus anything
// infrastructure-only.
func (c *Catalog) GrantablePermissions(baseKey RoleKey) ([]Permission, error) {
	perms, err := c.RolePermissions(baseKey)
	if err != nil {
		return nil, err
	}
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.InfrastructureOnly {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func allPermissionKeys() []PermissionKey {
	perms := catalogPermissions()
	out := make([]PermissionKey, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Key)
	}
	return out
}

func businessPermissionKeys() []PermissionKey {
	perms := catalogPermissions()
	out := make([]PermissionKey, 0, len(perms))
	for _, p := range perms {
		if p.InfrastructureOnly {
			continue
		}
		out = append(out, p.Key)
	}
	return out
}

func catalogRoles() []Role {
	return []Role{
		{
			Key:            RoleInfrastructureOwner,
			Label:          "Platform Owner",
			Scope:          ScopeInfrastructure,
			HierarchyLevel: 0,
			Permissions:    allPermissionKeys(),
		},
		{
			Key:            RolePlatformAdmin,
			Label:          "Platform Administrator",
			Scope:          ScopeInfrastructure,
			HierarchyLevel: 1,
			Permissions: withoutKeys(allPermissionKeys(),
				PermPlatformBillingManage,
			),
		},
		{
			Key:            RoleBusinessOwner,
			Label:          "Business Owner",
			Scope:          ScopeBusiness,
			HierarchyLevel: 2,
			Permissions:    businessPermissionKeys(),
		},
		{
			Key:            RoleManager,
			Label:          "Manager",
			Scope:          ScopeBusiness,
			HierarchyLevel: 3,
			Customizable:   true,
			Permissions: []PermissionKey{
				PermOrdersView, PermOrdersCreate, PermOrdersEdit, PermOrdersDelete, PermOrdersExport,
				PermInventoryView, PermInventoryEdit, PermInventoryTransfer, PermInventoryAdjust,
				PermDispatchView, PermDispatchAssign, PermDispatchTrack,
				PermFeedView, PermFeedPost,
				PermChatView, PermChatSend,
				PermTeamView, PermTeamInvite, PermTeamRolesManage,
				PermReportsView, PermReportsExport,
			},
		},
		{
			Key:            RoleDispatcher,
			Label:          "Dispatcher",
			Scope:          ScopeBusiness,
			HierarchyLevel: 4,
			Customizable:   true,
			Permissions: []PermissionKey{
				PermOrdersView, PermOrdersEdit,
				PermInventoryView,
				PermDispatchView, PermDispatchAssign, PermDispatchTrack,
				PermFeedView,
				PermChatView, PermChatSend,
				PermTeamView,
			},
		},
		{
			Key:            RoleSales,
			Label:          "Sales",
			Scope:          ScopeBusiness,
			HierarchyLevel: 5,
			Customizable:   true,
			Permissions: []PermissionKey{
				PermOrdersView, PermOrdersCreate, PermOrdersEdit,
				PermInventoryView,
				PermFeedView, PermFeedPost,
				PermChatView, PermChatSend,
				PermTeamView,
				PermReportsView,
			},
		},
		{
			Key:            RoleWarehouse,
			Label:          "Warehouse Operator",
			Scope:          ScopeBusiness,
			HierarchyLevel: 5,
			Customizable:   true,
			Permissions: []PermissionKey{
				PermOrdersView,
				PermInventoryView, PermInventoryEdit, PermInventoryTransfer, PermInventoryAdjust,
				PermDispatchView,
				PermChatView, PermChatSend,
				PermTeamView,
			},
		},
		{
			Key:            RoleViewer,
			Label:          "Viewer",
			Scope:          ScopeBusiness,
			HierarchyLevel: 6,
			Permissions: []PermissionKey{
				PermOrdersView,
				PermInventoryView,
				PermDispatchView,
				PermFeedView,
				PermChatView,
				PermTeamView,
				PermReportsView,
			},
		},
	}
}

func withoutKeys(keys []PermissionKey, drop ...PermissionKey) []PermissionKey {
	skip := make(map[PermissionKey]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]PermissionKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := skip[k]; ok {
			continue
		}
		out = append(out, k)
	}
	return out
}
