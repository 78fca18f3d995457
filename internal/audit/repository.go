package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for audit entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one audit entry. Entries are never updated or deleted
// outside retention pruning.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO override_audit (tenant_id, capability, actor_id, kind, role_id, before_doc, after_doc, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		e.TenantID, e.Capability, e.ActorID, e.Kind, e.RoleID, e.Before, e.After, e.At)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Window returns one page of entries for a tenant, newest first. The query
// fetches limit rows starting at offset; the service asks for one extra row
// to detect a next page.
func (r *Repository) Window(ctx context.Context, tenantID int64, f TimelineFilters, offset, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, capability, actor_id, kind, role_id, before_doc, after_doc, at
		FROM override_audit
		WHERE tenant_id = $1
		  AND ($2 = '' OR capability = $2)
		  AND ($3 = 0 OR actor_id = $3)
		  AND ($4 = '' OR kind = $4)
		  AND ($5::timestamptz IS NULL OR at >= $5)
		  AND ($6::timestamptz IS NULL OR at <= $6)
		ORDER BY at DESC, id DESC
		OFFSET $7 LIMIT $8`,
		tenantID, f.Capability, f.ActorID, f.Kind, nullableTime(f.From), nullableTime(f.To), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: window: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Capability, &e.ActorID, &e.Kind, &e.RoleID, &e.Before, &e.After, &e.At); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return entries, nil
}

// PruneBefore deletes entries older than cutoff and returns the count.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM override_audit WHERE at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
