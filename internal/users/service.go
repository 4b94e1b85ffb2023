package users

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/haulstack/haulstack/internal/audit"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListByBusiness(ctx context.Context, businessID int64) ([]User, error)
	UpdateUserRole(ctx context.Context, id int64, role rbac.RoleKey) error
}

// AuditPort hands finished role changes to the audit pipeline. Implementations
// must not block on the actual append; queue submission is the whole contract.
type AuditPort interface {
	RecordRoleChange(ctx context.Context, entry audit.Entry) error
}

// FailureCounter counts audit submissions that could not be queued.
// prometheus.Counter satisfies it.
type FailureCounter interface {
	Inc()
}

// Service orchestrates role changes: rule engine decision, permission diff,
// persistence write, then the fire-and-forget audit append.
type Service struct {
	repo         RepositoryPort
	catalog      *rbac.Catalog
	recorder     AuditPort
	logger       *slog.Logger
	auditFailure FailureCounter
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog *rbac.Catalog, recorder AuditPort, logger *slog.Logger, auditFailure FailureCounter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, recorder: recorder, logger: logger, auditFailure: auditFailure}
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListByBusiness returns a business's users.
func (s *Service) ListByBusiness(ctx context.Context, businessID int64) ([]User, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

// PreviewRoleChange evaluates a role change without writing anything: the
// decision plus the permission diff the caller renders for confirmation.
func (s *Service) PreviewRoleChange(ctx context.Context, input ChangeRoleInput) (ChangeRoleResult, error) {
	_, _, result, err := s.evaluate(ctx, input)
	return result, err
}

// ChangeRole applies a role change. The role write must succeed before the
// audit entry is queued, and the audit outcome never affects the success
// reported to the caller: an enqueue failure is logged and counted instead.
func (s *Service) ChangeRole(ctx context.Context, input ChangeRoleInput) (ChangeRoleResult, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return ChangeRoleResult{}, shared.Validationf("a reason for the role change is required")
	}
	actor, target, result, err := s.evaluate(ctx, input)
	if err != nil || result.NoChange || !result.Decision.Allowed {
		return result, err
	}

	if err := s.repo.UpdateUserRole(ctx, target.ID, input.RequestedRole); err != nil {
		return ChangeRoleResult{}, err
	}
	result.Applied = true

	entry := audit.NewEntry(audit.EntryInput{
		TargetUserID:        target.ID,
		TargetUsername:      target.Name,
		PerformedBy:         actor.ID,
		PerformedByUsername: actor.Name,
		OldRole:             string(result.OldRole),
		NewRole:             string(result.NewRole),
		Reason:              strings.TrimSpace(input.Reason),
		Timestamp:           time.Now().UTC(),
	})
	if err := s.recorder.RecordRoleChange(ctx, entry); err != nil {
		// Audit completeness is best-effort, never transactional with the
		// role change itself.
		s.logger.Warn("audit enqueue failed",
			slog.Int64("target_user_id", target.ID),
			slog.String("new_role", string(result.NewRole)),
			slog.Any("error", err),
		)
		if s.auditFailure != nil {
			s.auditFailure.Inc()
		}
	}
	return result, nil
}

// evaluate loads both parties, applies the no-op fail-fast, asks the engine,
// and computes the diff for an allowed transition.
func (s *Service) evaluate(ctx context.Context, input ChangeRoleInput) (User, User, ChangeRoleResult, error) {
	actor, err := s.repo.GetUser(ctx, input.ActorID)
	if err != nil {
		return User{}, User{}, ChangeRoleResult{}, err
	}
	target, err := s.repo.GetUser(ctx, input.TargetID)
	if err != nil {
		return User{}, User{}, ChangeRoleResult{}, err
	}

	result := ChangeRoleResult{OldRole: target.Role, NewRole: input.RequestedRole}
	if target.Role == input.RequestedRole {
		result.NoChange = true
		result.Decision = rbac.Decision{Allowed: true}
		return actor, target, result, nil
	}

	decision, err := s.catalog.CanChangeRole(rbac.RoleChangeRequest{
		Actor:         actor.Subject(),
		Target:        target.Subject(),
		RequestedRole: input.RequestedRole,
	})
	if err != nil {
		return User{}, User{}, ChangeRoleResult{}, shared.Validationf("%v", err)
	}
	result.Decision = decision
	if !decision.Allowed {
		return actor, target, result, nil
	}

	diff, err := s.catalog.DiffPermissions(target.Role, input.RequestedRole)
	if err != nil {
		return User{}, User{}, ChangeRoleResult{}, err
	}
	actorRole, err := s.catalog.GetRole(actor.Role)
	if err != nil {
		return User{}, User{}, ChangeRoleResult{}, err
	}
	// Business-scoped actors never see infrastructure-only permissions.
	if actorRole.Scope == rbac.ScopeBusiness {
		diff = diff.WithoutInfrastructureOnly()
	}
	result.Diff = diff
	return actor, target, result, nil
}
