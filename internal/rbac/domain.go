package rbac

// ScopeLevel distinguishes platform-wide roles from tenant-scoped ones.
type ScopeLevel string

const (
	// ScopeInfrastructure marks roles that apply across the whole platform.
	ScopeInfrastructure ScopeLevel = "infrastructure"
	// ScopeBusiness marks roles that apply within a single business.
	ScopeBusiness ScopeLevel = "business"
)

// RoleKey identifies a role in the catalog.
type RoleKey string

// PermissionKey identifies an atomic capability.
type PermissionKey string

// Role is a system-level identity class from the static catalog.
type Role struct {
	Key            RoleKey
	Label          string
	Scope          ScopeLevel
	HierarchyLevel int
	Customizable   bool
	Permissions    []PermissionKey
}

// Permission is an atomic capability grouped under a functional module.
type Permission struct {
	Key                PermissionKey
	Module             string
	Description        string
	InfrastructureOnly bool
}

// Subject identifies a user taking part in a role change. BusinessID is zero
// for platform staff.
type Subject struct {
	UserID     int64
	BusinessID int64
	Role       RoleKey
}

// RoleChangeRequest is the unit the rule engine evaluates. Target.Role holds
// the target's current role.
type RoleChangeRequest struct {
	Actor         Subject
	Target        Subject
	RequestedRole RoleKey
}

// Decision is the engine's answer to a RoleChangeRequest. Reason is empty
// when Allowed is true.
type Decision struct {
	Allowed          bool
	Reason           string
	RequiresApproval bool
}

// Diff describes the permission consequence of a role transition. Each slice
// preserves catalog ordering.
type Diff struct {
	Added     []Permission
	Removed   []Permission
	Unchanged []Permission
}

// OwnerRole reports whether key is one of the two owner-level roles.
func OwnerRole(key RoleKey) bool {
	return key == RoleInfrastructureOwner || key == RoleBusinessOwner
}
