package override

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/logiq-bot/logiq/internal/audit"
	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/platform/db"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, tenantID int64, key capability.Key) (*Record, error)
	List(ctx context.Context, tenantID int64) ([]Record, error)
	Apply(ctx context.Context, tenantID int64, key capability.Key, mutate func(current *Record) (Record, error)) (before *Record, after Record, err error)
	Delete(ctx context.Context, tenantID int64, key capability.Key) (*Record, error)
}

// Auditor records override mutations.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Service orchestrates override administration. Every mutation passes the
// fixed configuration gate, is applied atomically per (tenant, capability)
// record, and produces one audit entry.
type Service struct {
	store    Store
	registry *capability.Registry
	auditor  Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an override service.
func NewService(store Store, registry *capability.Registry, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{store: store, registry: registry, auditor: auditor, logger: logger, now: time.Now}
}

// Grant adds the role to the allow list and drops it from the deny list.
// Idempotent.
func (s *Service) Grant(ctx context.Context, actor authz.Actor, key capability.Key, roleID int64) (Record, error) {
	return s.mutate(ctx, actor, key, audit.KindGrant, roleID, func(rec *Record) {
		rec.AllowedRoles = addRole(rec.AllowedRoles, roleID)
		rec.DeniedRoles = removeRole(rec.DeniedRoles, roleID)
	})
}

// Revoke adds the role to the deny list and drops it from the allow list.
// Idempotent.
func (s *Service) Revoke(ctx context.Context, actor authz.Actor, key capability.Key, roleID int64) (Record, error) {
	return s.mutate(ctx, actor, key, audit.KindRevoke, roleID, func(rec *Record) {
		rec.DeniedRoles = addRole(rec.DeniedRoles, roleID)
		rec.AllowedRoles = removeRole(rec.AllowedRoles, roleID)
	})
}

// Clear removes the role from both lists.
func (s *Service) Clear(ctx context.Context, actor authz.Actor, key capability.Key, roleID int64) (Record, error) {
	return s.mutate(ctx, actor, key, audit.KindClear, roleID, func(rec *Record) {
		rec.AllowedRoles = removeRole(rec.AllowedRoles, roleID)
		rec.DeniedRoles = removeRole(rec.DeniedRoles, roleID)
	})
}

// Reset deletes the record entirely, reverting the capability to "no
// override". Resetting an absent record is a no-op.
func (s *Service) Reset(ctx context.Context, actor authz.Actor, key capability.Key) error {
	if !authz.ManageConfig(actor) {
		return ErrNotPermitted
	}
	if !s.registry.Known(key) {
		return ErrUnknownCapability
	}
	before, err := s.store.Delete(ctx, actor.TenantID, key)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	s.recordAudit(ctx, audit.Entry{
		TenantID:   actor.TenantID,
		Capability: string(key),
		ActorID:    actor.UserID,
		Kind:       audit.KindReset,
		Before:     snapshot(before),
	})
	return nil
}

// List enumerates the tenant's non-default records.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Record, error) {
	if !authz.ManageConfig(actor) {
		return nil, ErrNotPermitted
	}
	return s.store.List(ctx, actor.TenantID)
}

// Lookup resolves the allow/deny role sets for the decision engine. Absence
// of a record maps to a nil result, not an error.
func (s *Service) Lookup(ctx context.Context, tenantID int64, key capability.Key) (*authz.RoleSets, error) {
	rec, err := s.store.Get(ctx, tenantID, key)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &authz.RoleSets{Allowed: rec.AllowedRoles, Denied: rec.DeniedRoles}, nil
}

func (s *Service) mutate(ctx context.Context, actor authz.Actor, key capability.Key, kind string, roleID int64, change func(*Record)) (Record, error) {
	if !authz.ManageConfig(actor) {
		return Record{}, ErrNotPermitted
	}
	if !s.registry.Known(key) {
		return Record{}, ErrUnknownCapability
	}

	apply := func() (*Record, Record, error) {
		return s.store.Apply(ctx, actor.TenantID, key, func(current *Record) (Record, error) {
			next := Record{TenantID: actor.TenantID, Capability: key}
			if current != nil {
				next.AllowedRoles = append([]int64(nil), current.AllowedRoles...)
				next.DeniedRoles = append([]int64(nil), current.DeniedRoles...)
			}
			change(&next)
			next.UpdatedBy = actor.UserID
			next.UpdatedAt = s.now().UTC()
			return next, nil
		})
	}

	before, after, err := apply()
	if err != nil && db.IsSerializationFailure(err) {
		// One internal retry against re-fetched state before surfacing.
		before, after, err = apply()
	}
	if err != nil {
		if db.IsSerializationFailure(err) {
			return Record{}, ErrConcurrencyConflict
		}
		return Record{}, err
	}

	s.recordAudit(ctx, audit.Entry{
		TenantID:   actor.TenantID,
		Capability: string(key),
		ActorID:    actor.UserID,
		Kind:       kind,
		RoleID:     &roleID,
		Before:     snapshot(before),
		After:      snapshot(&after),
	})
	return after, nil
}

func (s *Service) recordAudit(ctx context.Context, e audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		s.logger.Warn("failed to record override audit",
			slog.String("capability", e.Capability),
			slog.Any("error", err))
	}
}

func snapshot(rec *Record) json.RawMessage {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return data
}
