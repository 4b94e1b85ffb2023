package customroles

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
)

// RepositoryPort defines data access methods for custom roles. Insert and
// Update replace the role's permission rows wholesale so the persisted set
// always equals the requested set.
type RepositoryPort interface {
	Insert(ctx context.Context, role CustomRole) (CustomRole, error)
	Update(ctx context.Context, role CustomRole) (CustomRole, error)
	Get(ctx context.Context, id uuid.UUID) (CustomRole, error)
	List(ctx context.Context, businessID int64, activeOnly bool) ([]CustomRole, error)
	Deactivate(ctx context.Context, id uuid.UUID, modifiedBy int64) error
}

// Service validates custom role authoring against the role catalog before
// anything touches the store.
type Service struct {
	catalog *rbac.Catalog
	repo    RepositoryPort
}

// NewService builds Service instance.
func NewService(catalog *rbac.Catalog, repo RepositoryPort) *Service {
	return &Service{catalog: catalog, repo: repo}
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// Create authors a new custom role. Every precondition failure is a
// ValidationError raised before the write; a name collision inside the
// business surfaces from the store as a ConflictError.
func (s *Service) Create(ctx context.Context, input CreateInput) (CustomRole, error) {
	base, err := s.catalog.GetRole(input.BaseRole)
	if err != nil {
		return CustomRole{}, shared.Validationf("unknown base role %q", input.BaseRole)
	}
	if !base.Customizable {
		return CustomRole{}, shared.Validationf("role %q cannot be customized", base.Key)
	}
	if input.BusinessID <= 0 {
		return CustomRole{}, shared.Validationf("business id is required")
	}
	if input.Actor.BusinessID != input.BusinessID {
		return CustomRole{}, shared.Validationf("custom roles can only be created for your own business")
	}
	name := strings.TrimSpace(input.Name)
	if !namePattern.MatchString(name) {
		return CustomRole{}, shared.Validationf("name must be a lowercase machine key, e.g. %q", "weekend_dispatcher")
	}
	if strings.TrimSpace(input.Label) == "" {
		return CustomRole{}, shared.Validationf("label is required")
	}
	if err := s.validateSelection(base, input.EnabledPermissions); err != nil {
		return CustomRole{}, err
	}

	now := time.Now().UTC()
	role := CustomRole{
		ID:                 uuid.New(),
		BusinessID:         input.BusinessID,
		BaseRole:           base.Key,
		Name:               name,
		Label:              strings.TrimSpace(input.Label),
		Description:        strings.TrimSpace(input.Description),
		IsActive:           true,
		EnabledPermissions: dedupe(input.EnabledPermissions),
		CreatedBy:          input.Actor.UserID,
		ModifiedBy:         input.Actor.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return s.repo.Insert(ctx, role)
}

// Update edits the label, description or enabled permission set of an
// existing custom role. Name and base role never change.
func (s *Service) Update(ctx context.Context, input UpdateInput) (CustomRole, error) {
	role, err := s.repo.Get(ctx, input.ID)
	if err != nil {
		return CustomRole{}, err
	}
	if role.BusinessID != input.Actor.BusinessID {
		return CustomRole{}, shared.ErrNotFound
	}
	if !role.IsActive {
		return CustomRole{}, shared.Validationf("custom role %q is deactivated", role.Name)
	}
	base, err := s.catalog.GetRole(role.BaseRole)
	if err != nil {
		return CustomRole{}, err
	}

	if input.Label != nil {
		if strings.TrimSpace(*input.Label) == "" {
			return CustomRole{}, shared.Validationf("label is required")
		}
		role.Label = strings.TrimSpace(*input.Label)
	}
	if input.Description != nil {
		role.Description = strings.TrimSpace(*input.Description)
	}
	if input.EnabledPermissions != nil {
		if err := s.validateSelection(base, input.EnabledPermissions); err != nil {
			return CustomRole{}, err
		}
		role.EnabledPermissions = dedupe(input.EnabledPermissions)
	}
	role.ModifiedBy = input.Actor.UserID
	role.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, role)
}

// Deactivate soft-deletes a custom role. Assignments already made under the
// role keep their historical permission set.
func (s *Service) Deactivate(ctx context.Context, actor rbac.Subject, id uuid.UUID) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.BusinessID != actor.BusinessID {
		return shared.ErrNotFound
	}
	return s.repo.Deactivate(ctx, id, actor.UserID)
}

// List returns a business's custom roles, active ones only by default.
func (s *Service) List(ctx context.Context, businessID int64, activeOnly bool) ([]CustomRole, error) {
	return s.repo.List(ctx, businessID, activeOnly)
}

// Get fetches one custom role scoped to the actor's business.
func (s *Service) Get(ctx context.Context, actor rbac.Subject, id uuid.UUID) (CustomRole, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return CustomRole{}, err
	}
	if role.BusinessID != actor.BusinessID {
		return CustomRole{}, shared.ErrNotFound
	}
	return role, nil
}

// validateSelection rejects, rather than silently drops, any key outside the
// base role's grantable set.
func (s *Service) validateSelection(base rbac.Role, keys []rbac.PermissionKey) error {
	if len(keys) == 0 {
		return shared.Validationf("at least one permission must be enabled")
	}
	member := make(map[rbac.PermissionKey]struct{}, len(base.Permissions))
	for _, pk := range base.Permissions {
		member[pk] = struct{}{}
	}
	for _, key := range keys {
		perm, err := s.catalog.GetPermission(key)
		if err != nil {
			return shared.Validationf("unknown permission %q", key)
		}
		if perm.InfrastructureOnly {
			return shared.Validationf("permission %q is reserved for platform staff", key)
		}
		if _, ok := member[key]; !ok {
			return shared.Validationf("permission %q is not part of the %q role", key, base.Key)
		}
	}
	return nil
}

func dedupe(keys []rbac.PermissionKey) []rbac.PermissionKey {
	seen := make(map[rbac.PermissionKey]struct{}, len(keys))
	out := make([]rbac.PermissionKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
