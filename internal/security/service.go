package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/logiq-bot/logiq/internal/authz"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, tenantID int64) (Config, error)
	Upsert(ctx context.Context, cfg Config) (Config, error)
}

// Service resolves and mutates tenant security configuration. Reads go
// through a redis cache; concurrent misses for the same tenant collapse into
// one storage fetch.
type Service struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs a security service.
func NewService(store Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Get fetches the tenant's config, bootstrapping an uninitialised record when
// none exists yet.
func (s *Service) Get(ctx context.Context, tenantID int64) (Config, error) {
	if cfg, ok := s.fromCache(ctx, tenantID); ok {
		return cfg, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("security:%d", tenantID), func() (any, error) {
		cfg, err := s.store.Get(ctx, tenantID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return Config{}, err
			}
			cfg, err = s.store.Upsert(ctx, Config{TenantID: tenantID})
			if err != nil {
				return Config{}, err
			}
		}
		s.toCache(ctx, cfg)
		return cfg, nil
	})
	if err != nil {
		return Config{}, err
	}
	return v.(Config), nil
}

// Ready reports whether sensitive capabilities are unlocked for the tenant.
func (s *Service) Ready(ctx context.Context, tenantID int64) (bool, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return cfg.Initialized, nil
}

// Protected reports whether the member may not be sanctioned: the tenant
// owner, or any holder of a protected role.
func (s *Service) Protected(ctx context.Context, member authz.Actor) (bool, error) {
	if member.IsOwner {
		return true, nil
	}
	cfg, err := s.Get(ctx, member.TenantID)
	if err != nil {
		return false, err
	}
	return member.HasAnyRole(cfg.ProtectedRoleIDs), nil
}

// Update replaces the tenant's protected role set. Restricted to the fixed
// configuration gate; the override mechanism cannot reach this.
func (s *Service) Update(ctx context.Context, actor authz.Actor, protectedRoleIDs []int64, initialized bool) (Config, error) {
	if !authz.ManageConfig(actor) {
		return Config{}, ErrNotPermitted
	}
	cfg, err := s.store.Upsert(ctx, Config{
		TenantID:         actor.TenantID,
		ProtectedRoleIDs: protectedRoleIDs,
		Initialized:      initialized,
	})
	if err != nil {
		return Config{}, err
	}
	s.toCache(ctx, cfg)
	return cfg, nil
}

func (s *Service) cacheKey(tenantID int64) string {
	return fmt.Sprintf("security:%d", tenantID)
}

func (s *Service) fromCache(ctx context.Context, tenantID int64) (Config, bool) {
	if s.cache == nil {
		return Config{}, false
	}
	data, err := s.cache.Get(ctx, s.cacheKey(tenantID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("security cache read", slog.Any("error", err))
		}
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}

func (s *Service) toCache(ctx context.Context, cfg Config) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(cfg.TenantID), data, s.ttl).Err(); err != nil {
		s.logger.Debug("security cache write", slog.Any("error", err))
	}
}
