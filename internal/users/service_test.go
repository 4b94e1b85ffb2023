package users

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haulstack/haulstack/internal/audit"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
)

type memoryRepo struct {
	users       map[int64]User
	roleWrites  int
	failWrite   bool
}

func (r *memoryRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) ListByBusiness(ctx context.Context, businessID int64) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.BusinessID == businessID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateUserRole(ctx context.Context, id int64, role rbac.RoleKey) error {
	if r.failWrite {
		return shared.Persistence("users: update role", errors.New("store down"))
	}
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	r.users[id] = u
	r.roleWrites++
	return nil
}

type stubRecorder struct {
	entries []audit.Entry
	err     error
}

func (s *stubRecorder) RecordRoleChange(ctx context.Context, entry audit.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type countingCounter struct {
	n int
}

func (c *countingCounter) Inc() { c.n++ }

func newFixture(t *testing.T) (*Service, *memoryRepo, *stubRecorder, *countingCounter) {
	t.Helper()
	catalog, err := rbac.NewCatalog()
	require.NoError(t, err)
	repo := &memoryRepo{users: map[int64]User{
		1: {ID: 1, Name: "Sam Owner", BusinessID: 10, Role: rbac.RoleBusinessOwner, IsActive: true},
		2: {ID: 2, Name: "Pat Seller", BusinessID: 10, Role: rbac.RoleSales, IsActive: true},
		3: {ID: 3, Name: "Ana Manager", BusinessID: 10, Role: rbac.RoleManager, IsActive: true},
	}}
	recorder := &stubRecorder{}
	counter := &countingCounter{}
	svc := NewService(repo, catalog, recorder, slog.Default(), counter)
	return svc, repo, recorder, counter
}

func TestChangeRoleHappyPath(t *testing.T) {
	svc, repo, recorder, _ := newFixture(t)
	result, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager, Reason: "promotion cycle",
	})
	require.NoError(t, err)
	require.True(t, result.Decision.Allowed)
	require.True(t, result.Applied)
	require.Equal(t, rbac.RoleManager, repo.users[2].Role)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	require.Equal(t, int64(2), entry.TargetUserID)
	require.Equal(t, int64(1), entry.PerformedBy)
	require.Equal(t, "sales", entry.OldRole)
	require.Equal(t, "manager", entry.NewRole)
	require.Equal(t, "promotion cycle", entry.Reason)
}

func TestChangeRoleDeniedWritesNothing(t *testing.T) {
	svc, repo, recorder, _ := newFixture(t)
	result, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 3, TargetID: 2, RequestedRole: rbac.RoleBusinessOwner, Reason: "wants it",
	})
	require.NoError(t, err)
	require.False(t, result.Decision.Allowed)
	require.Equal(t, rbac.ReasonInsufficientGrant, result.Decision.Reason)
	require.False(t, result.Applied)
	require.Equal(t, rbac.RoleSales, repo.users[2].Role)
	require.Empty(t, recorder.entries)
}

func TestChangeRoleNoOpShortCircuits(t *testing.T) {
	svc, repo, recorder, _ := newFixture(t)
	result, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleSales, Reason: "same role",
	})
	require.NoError(t, err)
	require.True(t, result.NoChange)
	require.False(t, result.Applied)
	require.Zero(t, repo.roleWrites)
	require.Empty(t, recorder.entries)
}

func TestChangeRoleRequiresReason(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	_, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager, Reason: "  ",
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, repo.roleWrites)
}

func TestAuditOutageDoesNotFailTheChange(t *testing.T) {
	svc, repo, recorder, counter := newFixture(t)
	recorder.err = errors.New("queue unreachable")

	result, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager, Reason: "promotion cycle",
	})
	require.NoError(t, err, "role change success is independent of the audit write")
	require.True(t, result.Applied)
	require.Equal(t, rbac.RoleManager, repo.users[2].Role)
	require.Equal(t, 1, counter.n, "enqueue failure must hit the warning channel")
}

func TestPersistenceFailureReportsNotApplied(t *testing.T) {
	svc, repo, recorder, _ := newFixture(t)
	repo.failWrite = true

	_, err := svc.ChangeRole(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager, Reason: "promotion cycle",
	})
	var perr *shared.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Empty(t, recorder.entries, "audit is only attempted after a confirmed write")
}

func TestPreviewDoesNotWrite(t *testing.T) {
	svc, repo, recorder, _ := newFixture(t)
	result, err := svc.PreviewRoleChange(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager,
	})
	require.NoError(t, err)
	require.True(t, result.Decision.Allowed)
	require.NotEmpty(t, result.Diff.Added)
	require.False(t, result.Applied)
	require.Zero(t, repo.roleWrites)
	require.Empty(t, recorder.entries)
}

func TestPreviewFiltersInfrastructureOnlyForBusinessActor(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	result, err := svc.PreviewRoleChange(context.Background(), ChangeRoleInput{
		ActorID: 1, TargetID: 2, RequestedRole: rbac.RoleManager,
	})
	require.NoError(t, err)
	for _, slice := range [][]rbac.Permission{result.Diff.Added, result.Diff.Removed, result.Diff.Unchanged} {
		for _, p := range slice {
			require.False(t, p.InfrastructureOnly)
		}
	}
}
