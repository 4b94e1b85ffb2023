package customroles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haulstack/haulstack/internal/platform/db"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
)

// Repository provides PostgreSQL backed persistence for custom roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// Insert writes the role row and its permission rows in one transaction. A
// unique-constraint violation on (business_id, name) becomes a ConflictError;
// the store's constraint is the enforcement point for the create/create race.
func (r *Repository) Insert(ctx context.Context, role CustomRole) (CustomRole, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO custom_roles (id, business_id, base_role_key, name, label, description, is_active, created_by, modified_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			role.ID, role.BusinessID, string(role.BaseRole), role.Name, role.Label, role.Description,
			role.IsActive, role.CreatedBy, role.ModifiedBy, role.CreatedAt, role.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertPermissionRows(ctx, tx, role)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return CustomRole{}, shared.Conflictf("a custom role named %q already exists in this business", role.Name)
		}
		return CustomRole{}, shared.Persistence("customroles: insert", err)
	}
	return role, nil
}

// Update rewrites the role row and replaces every permission row. Delete then
// insert keeps the persisted set exactly equal to the requested set with no
// orphaned rows.
func (r *Repository) Update(ctx context.Context, role CustomRole) (CustomRole, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE custom_roles
			SET label = $2, description = $3, modified_by = $4, updated_at = $5
			WHERE id = $1 AND is_active`,
			role.ID, role.Label, role.Description, role.ModifiedBy, role.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM custom_role_permissions WHERE custom_role_id = $1`, role.ID); err != nil {
			return err
		}
		return insertPermissionRows(ctx, tx, role)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return CustomRole{}, shared.ErrNotFound
		}
		return CustomRole{}, shared.Persistence("customroles: update", err)
	}
	return role, nil
}

// Get fetches one custom role with its enabled permission keys.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (CustomRole, error) {
	var role CustomRole
	var baseKey string
	err := r.pool.QueryRow(ctx, `
		SELECT id, business_id, base_role_key, name, label, description, is_active, created_by, modified_by, created_at, updated_at
		FROM custom_roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.BusinessID, &baseKey, &role.Name, &role.Label, &role.Description,
		&role.IsActive, &role.CreatedBy, &role.ModifiedBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomRole{}, shared.ErrNotFound
		}
		return CustomRole{}, shared.Persistence("customroles: get", err)
	}
	role.BaseRole = rbac.RoleKey(baseKey)

	rows, err := r.pool.Query(ctx, `
		SELECT permission_key FROM custom_role_permissions
		WHERE custom_role_id = $1 AND is_enabled
		ORDER BY position`, id)
	if err != nil {
		return CustomRole{}, shared.Persistence("customroles: get permissions", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return CustomRole{}, shared.Persistence("customroles: scan permission", err)
		}
		role.EnabledPermissions = append(role.EnabledPermissions, rbac.PermissionKey(key))
	}
	if err := rows.Err(); err != nil {
		return CustomRole{}, shared.Persistence("customroles: get permissions", err)
	}
	return role, nil
}

// List returns a business's custom roles ordered by name.
func (r *Repository) List(ctx context.Context, businessID int64, activeOnly bool) ([]CustomRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, business_id, base_role_key, name, label, description, is_active, created_by, modified_by, created_at, updated_at
		FROM custom_roles
		WHERE business_id = $1 AND (NOT $2 OR is_active)
		ORDER BY name`, businessID, activeOnly)
	if err != nil {
		return nil, shared.Persistence("customroles: list", err)
	}
	defer rows.Close()

	var roles []CustomRole
	for rows.Next() {
		var role CustomRole
		var baseKey string
		if err := rows.Scan(&role.ID, &role.BusinessID, &baseKey, &role.Name, &role.Label, &role.Description,
			&role.IsActive, &role.CreatedBy, &role.ModifiedBy, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, shared.Persistence("customroles: scan", err)
		}
		role.BaseRole = rbac.RoleKey(baseKey)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("customroles: list", err)
	}

	for i := range roles {
		keys, err := r.permissionKeys(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].EnabledPermissions = keys
	}
	return roles, nil
}

// Deactivate soft-deletes the role.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID, modifiedBy int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE custom_roles SET is_active = FALSE, modified_by = $2, updated_at = NOW()
		WHERE id = $1 AND is_active`, id, modifiedBy)
	if err != nil {
		return shared.Persistence("customroles: deactivate", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) permissionKeys(ctx context.Context, id uuid.UUID) ([]rbac.PermissionKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT permission_key FROM custom_role_permissions
		WHERE custom_role_id = $1 AND is_enabled
		ORDER BY position`, id)
	if err != nil {
		return nil, shared.Persistence("customroles: permissions", err)
	}
	defer rows.Close()
	var keys []rbac.PermissionKey
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, shared.Persistence("customroles: scan permission", err)
		}
		keys = append(keys, rbac.PermissionKey(key))
	}
	return keys, rows.Err()
}

func insertPermissionRows(ctx context.Context, tx pgx.Tx, role CustomRole) error {
	for i, key := range role.EnabledPermissions {
		_, err := tx.Exec(ctx, `
			INSERT INTO custom_role_permissions (custom_role_id, permission_key, is_enabled, position, modified_by)
			VALUES ($1, $2, TRUE, $3, $4)`,
			role.ID, string(key), i, role.ModifiedBy)
		if err != nil {
			return err
		}
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
