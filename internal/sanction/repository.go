package sanction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logiq-bot/logiq/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for sanctions.
//
// Table: sanctions (id UUID PRIMARY KEY, tenant_id BIGINT, subject_id BIGINT,
// moderator_id BIGINT, reason TEXT, duration_seconds BIGINT,
// starts_at TIMESTAMPTZ, ends_at TIMESTAMPTZ, status TEXT,
// resolved_at TIMESTAMPTZ, resolved_by BIGINT). A unique partial index on
// (tenant_id, subject_id) WHERE status = 'active' backs the
// single-active-per-subject invariant even if two transactions race.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Issue resolves any active sanction for the subject and inserts the new one
// as a single transaction. Two concurrent issues against the same subject
// cannot both insert an active row.
func (r *Repository) Issue(ctx context.Context, s Sanction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE sanctions
			SET status = $1, resolved_at = $2, resolved_by = $3
			WHERE tenant_id = $4 AND subject_id = $5 AND status = $6`,
			StatusResolved, s.StartsAt, s.ModeratorID, s.TenantID, s.SubjectID, StatusActive); err != nil {
			return fmt.Errorf("sanction: resolve prior: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sanctions (id, tenant_id, subject_id, moderator_id, reason, duration_seconds, starts_at, ends_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.ID, s.TenantID, s.SubjectID, s.ModeratorID, s.Reason, s.Duration, s.StartsAt, s.EndsAt, s.Status); err != nil {
			return fmt.Errorf("sanction: insert: %w", err)
		}
		return nil
	})
}

// Lift resolves the active sanction for a subject, returning the updated
// record or nil when none was active.
func (r *Repository) Lift(ctx context.Context, tenantID, subjectID, actorID int64, at time.Time) (*Sanction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sanctions
		SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE tenant_id = $4 AND subject_id = $5 AND status = $6
		RETURNING id, tenant_id, subject_id, moderator_id, reason, duration_seconds, starts_at, ends_at, status, resolved_at, resolved_by`,
		StatusResolved, at, actorID, tenantID, subjectID, StatusActive)
	s, err := scanSanction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sanction: lift: %w", err)
	}
	return s, nil
}

// ActiveFor returns the stored active sanction for a subject, or nil.
func (r *Repository) ActiveFor(ctx context.Context, tenantID, subjectID int64) (*Sanction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, subject_id, moderator_id, reason, duration_seconds, starts_at, ends_at, status, resolved_at, resolved_by
		FROM sanctions
		WHERE tenant_id = $1 AND subject_id = $2 AND status = $3`,
		tenantID, subjectID, StatusActive)
	s, err := scanSanction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sanction: active: %w", err)
	}
	return s, nil
}

// RecentFor returns up to limit most recent sanctions for a subject, newest
// first.
func (r *Repository) RecentFor(ctx context.Context, tenantID, subjectID int64, limit int) ([]Sanction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, subject_id, moderator_id, reason, duration_seconds, starts_at, ends_at, status, resolved_at, resolved_by
		FROM sanctions
		WHERE tenant_id = $1 AND subject_id = $2
		ORDER BY starts_at DESC
		LIMIT $3`,
		tenantID, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("sanction: recent: %w", err)
	}
	defer rows.Close()

	var out []Sanction
	for rows.Next() {
		s, err := scanSanction(rows)
		if err != nil {
			return nil, fmt.Errorf("sanction: scan: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sanction: rows: %w", err)
	}
	return out, nil
}

// PruneResolvedBefore deletes resolved sanctions whose end passed before
// cutoff and returns the count.
func (r *Repository) PruneResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sanctions WHERE status = $1 AND ends_at < $2`,
		StatusResolved, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sanction: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSanction(row pgx.Row) (*Sanction, error) {
	var s Sanction
	if err := row.Scan(&s.ID, &s.TenantID, &s.SubjectID, &s.ModeratorID, &s.Reason, &s.Duration,
		&s.StartsAt, &s.EndsAt, &s.Status, &s.ResolvedAt, &s.ResolvedBy); err != nil {
		return nil, err
	}
	return &s, nil
}
