package override

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for override records.
//
// Table: feature_overrides (tenant_id BIGINT, capability TEXT,
// allowed_roles BIGINT[], denied_roles BIGINT[], updated_by BIGINT,
// updated_at TIMESTAMPTZ, PRIMARY KEY (tenant_id, capability)).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the record for a pair, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, tenantID int64, key capability.Key) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT tenant_id, capability, allowed_roles, denied_roles, updated_by, updated_at
		FROM feature_overrides
		WHERE tenant_id = $1 AND capability = $2`, tenantID, key)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("override: get: %w", err)
	}
	return rec, nil
}

// List returns all non-default records for a tenant ordered by capability.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, capability, allowed_roles, denied_roles, updated_by, updated_at
		FROM feature_overrides
		WHERE tenant_id = $1
		ORDER BY capability`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("override: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("override: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override: rows: %w", err)
	}
	return records, nil
}

// Apply mutates the record for a pair inside one transaction. The current
// row is locked for the duration so concurrent mutations of the same pair
// serialize; mutate receives nil when no record exists yet.
func (r *Repository) Apply(ctx context.Context, tenantID int64, key capability.Key, mutate func(current *Record) (Record, error)) (before *Record, after Record, err error) {
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT tenant_id, capability, allowed_roles, denied_roles, updated_by, updated_at
			FROM feature_overrides
			WHERE tenant_id = $1 AND capability = $2
			FOR UPDATE`, tenantID, key)
		current, scanErr := scanRecord(row)
		if scanErr != nil && !errors.Is(scanErr, pgx.ErrNoRows) {
			return fmt.Errorf("override: lock row: %w", scanErr)
		}
		before = current

		next, mutErr := mutate(current)
		if mutErr != nil {
			return mutErr
		}

		_, execErr := tx.Exec(ctx, `
			INSERT INTO feature_overrides (tenant_id, capability, allowed_roles, denied_roles, updated_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, capability) DO UPDATE SET
				allowed_roles = EXCLUDED.allowed_roles,
				denied_roles = EXCLUDED.denied_roles,
				updated_by = EXCLUDED.updated_by,
				updated_at = EXCLUDED.updated_at`,
			next.TenantID, next.Capability, next.AllowedRoles, next.DeniedRoles, next.UpdatedBy, next.UpdatedAt)
		if execErr != nil {
			return fmt.Errorf("override: upsert: %w", execErr)
		}
		after = next
		return nil
	})
	return before, after, err
}

// Delete removes the record for a pair, returning the deleted record or
// ErrNotFound.
func (r *Repository) Delete(ctx context.Context, tenantID int64, key capability.Key) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM feature_overrides
		WHERE tenant_id = $1 AND capability = $2
		RETURNING tenant_id, capability, allowed_roles, denied_roles, updated_by, updated_at`,
		tenantID, key)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("override: delete: %w", err)
	}
	return rec, nil
}

// StoredCapabilityKeys lists distinct capability keys present in storage,
// across all tenants. Used by the registry startup validation.
func (r *Repository) StoredCapabilityKeys(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT capability FROM feature_overrides`)
	if err != nil {
		return nil, fmt.Errorf("override: stored keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("override: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("override: rows: %w", err)
	}
	return keys, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.TenantID, &rec.Capability, &rec.AllowedRoles, &rec.DeniedRoles, &rec.UpdatedBy, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
