package users

import (
	"time"

	"github.com/haulstack/haulstack/internal/rbac"
)

// User represents a platform or business account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	BusinessID   int64
	Role         rbac.RoleKey
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject maps the user onto the rule engine's view of it.
func (u User) Subject() rbac.Subject {
	return rbac.Subject{UserID: u.ID, BusinessID: u.BusinessID, Role: u.Role}
}

// ChangeRoleInput asks to move a target user to a new role.
type ChangeRoleInput struct {
	ActorID       int64
	TargetID      int64
	RequestedRole rbac.RoleKey
	Reason        string
}

// ChangeRoleResult reports the decision, its permission consequence, and
// whether the change was written. NoChange is set when the requested role
// equals the current one; the engine is not consulted in that case.
type ChangeRoleResult struct {
	Decision rbac.Decision
	Diff     rbac.Diff
	OldRole  rbac.RoleKey
	NewRole  rbac.RoleKey
	NoChange bool
	Applied  bool
}
