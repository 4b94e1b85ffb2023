package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, password_hash, COALESCE(business_id, 0), role_key, is_active, created_at, updated_at`

// GetUser fetches one user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches one active user by email, for login.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListByBusiness returns a business's users ordered by name.
func (r *Repository) ListByBusiness(ctx context.Context, businessID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE business_id = $1 ORDER BY name`, businessID)
	if err != nil {
		return nil, shared.Persistence("users: list", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("users: list", err)
	}
	return out, nil
}

// UpdateUserRole writes the new role. The caller has already authorized the
// transition; this is the single role-mutating write and it is never retried
// here.
func (r *Repository) UpdateUserRole(ctx context.Context, id int64, role rbac.RoleKey) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_key = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return shared.Persistence("users: update role", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var roleKey string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.BusinessID, &roleKey, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, shared.Persistence("users: scan", err)
	}
	u.Role = rbac.RoleKey(roleKey)
	return u, nil
}

var _ RepositoryPort = (*Repository)(nil)
