package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haulstack/haulstack/internal/shared"
)

// PGRepository reads and appends the role change log in PostgreSQL. Appends
// go through the record_role_change procedure so the store enforces
// append-only semantics server side; there is no UPDATE or DELETE path.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Record appends one entry via the store procedure. The procedure ignores an
// entry ID it has already seen, so redelivery is harmless.
func (r *PGRepository) Record(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx,
		`SELECT record_role_change($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.TargetUserID,
		entry.TargetUsername,
		entry.PerformedBy,
		entry.PerformedByUsername,
		entry.OldRole,
		entry.NewRole,
		entry.Reason,
		entry.Timestamp,
	)
	if err != nil {
		return shared.Persistence("audit: record role change", err)
	}
	return nil
}

// TimelineWindow returns a slice of the log, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, target_user_id, target_username, performed_by, performed_by_username, old_role, new_role, reason, occurred_at
		FROM role_change_audit_log
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		  AND ($3::bigint = 0 OR target_user_id = $3)
		  AND ($4::bigint = 0 OR performed_by = $4)
		ORDER BY occurred_at DESC
		OFFSET $5 LIMIT $6`,
		toPgTime(filters.From), toPgTime(filters.To),
		filters.TargetUserID, filters.PerformedBy,
		offset, limit,
	)
	if err != nil {
		return nil, shared.Persistence("audit: timeline", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var occurredAt pgtype.Timestamptz
		if err := rows.Scan(&e.ID, &e.TargetUserID, &e.TargetUsername, &e.PerformedBy, &e.PerformedByUsername,
			&e.OldRole, &e.NewRole, &e.Reason, &occurredAt); err != nil {
			return nil, shared.Persistence("audit: scan timeline", err)
		}
		if occurredAt.Valid {
			e.Timestamp = occurredAt.Time
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("audit: timeline", err)
	}
	return entries, nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
