package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no security config exists for the tenant.
var ErrNotFound = errors.New("security: not found")

// Repository provides PostgreSQL backed persistence.
//
// Table: tenant_security (tenant_id BIGINT PRIMARY KEY,
// protected_role_ids BIGINT[], initialized BOOLEAN,
// created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the tenant's security config, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, tenantID int64) (Config, error) {
	var cfg Config
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, protected_role_ids, initialized, created_at, updated_at
		FROM tenant_security
		WHERE tenant_id = $1`, tenantID).
		Scan(&cfg.TenantID, &cfg.ProtectedRoleIDs, &cfg.Initialized, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrNotFound
		}
		return Config{}, fmt.Errorf("security: get: %w", err)
	}
	return cfg, nil
}

// Upsert writes the tenant's security config.
func (r *Repository) Upsert(ctx context.Context, cfg Config) (Config, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenant_security (tenant_id, protected_role_ids, initialized, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			protected_role_ids = EXCLUDED.protected_role_ids,
			initialized = EXCLUDED.initialized,
			updated_at = NOW()
		RETURNING tenant_id, protected_role_ids, initialized, created_at, updated_at`,
		cfg.TenantID, cfg.ProtectedRoleIDs, cfg.Initialized).
		Scan(&cfg.TenantID, &cfg.ProtectedRoleIDs, &cfg.Initialized, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return Config{}, fmt.Errorf("security: upsert: %w", err)
	}
	return cfg, nil
}
