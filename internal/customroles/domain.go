package customroles

import (
	"time"

	"github.com/google/uuid"

	"github.com/haulstack/haulstack/internal/rbac"
)

// CustomRole is a business-authored derivative of a customizable base role.
// EnabledPermissions is always a subset of the base role's permission set
// minus anything infrastructure-only.
type CustomRole struct {
	ID                 uuid.UUID
	BusinessID         int64
	BaseRole           rbac.RoleKey
	Name               string
	Label              string
	Description        string
	IsActive           bool
	EnabledPermissions []rbac.PermissionKey
	CreatedBy          int64
	ModifiedBy         int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateInput collects everything needed to author a custom role.
type CreateInput struct {
	Actor              rbac.Subject
	BusinessID         int64
	BaseRole           rbac.RoleKey
	Name               string
	Label              string
	Description        string
	EnabledPermissions []rbac.PermissionKey
}

// UpdateInput mutates an existing custom role. Name and BaseRole are
// immutable after creation; nil pointer fields are left untouched.
type UpdateInput struct {
	Actor              rbac.Subject
	ID                 uuid.UUID
	Label              *string
	Description        *string
	EnabledPermissions []rbac.PermissionKey
}
