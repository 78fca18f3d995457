package authz

import (
	"context"
	"log/slog"

	"github.com/logiq-bot/logiq/internal/capability"
)

// OverrideSource resolves the configured allow/deny role sets for a
// (tenant, capability) pair. A nil result means no override is configured.
type OverrideSource interface {
	Lookup(ctx context.Context, tenantID int64, key capability.Key) (*RoleSets, error)
}

// Engine reconciles the owner/admin bypass, the capability base predicate,
// the hierarchy guard and configured role overrides into one verdict.
type Engine struct {
	overrides OverrideSource
	logger    *slog.Logger

	// OnDecision, when set, receives every verdict. Used for metrics; it must
	// not block.
	OnDecision func(key capability.Key, verdict Verdict)

	// Denials, when set, receives denial events on a throttled basis,
	// decoupled from the returned verdict.
	Denials *DenialNotifier
}

// NewEngine constructs the decision engine.
func NewEngine(overrides OverrideSource, logger *slog.Logger) *Engine {
	return &Engine{overrides: overrides, logger: logger}
}

// Decide evaluates whether actor may perform the capability, optionally
// against target. The check order is fixed and short-circuiting:
//
//  1. Tenant owner or administrator: allow unconditionally.
//  2. Base predicate must pass.
//  3. Hierarchy guard when a target is supplied.
//  4. No override record: allow.
//  5. Any denied role held: deny. The deny list dominates the allow list;
//     this is a documented policy decision, not an ordering accident.
//  6. Empty allow list: allow. Otherwise at least one allowed role required.
//
// Decide itself raises no domain errors: an override lookup failure degrades
// to "no override found", which is safe because the base predicate and the
// hierarchy guard have already passed.
func (e *Engine) Decide(ctx context.Context, actor Actor, key capability.Key, base Predicate, target *Actor) Verdict {
	verdict := e.decide(ctx, actor, key, base, target)
	if e.OnDecision != nil {
		e.OnDecision(key, verdict)
	}
	if !verdict.Allowed && e.Denials != nil {
		e.Denials.Notify(ctx, actor, key, verdict.Reason)
	}
	return verdict
}

func (e *Engine) decide(ctx context.Context, actor Actor, key capability.Key, base Predicate, target *Actor) Verdict {
	if actor.IsOwner || actor.IsAdmin {
		return allow(ReasonAdminBypass)
	}

	if base == nil || !base(actor, target) {
		return deny(ReasonBasePredicateFailed, "You do not have permission to use this command.")
	}

	if target != nil {
		if ok, reason := Permitted(actor, *target); !ok {
			return deny(ReasonHierarchyBlocked, reason)
		}
	}

	sets, err := e.overrides.Lookup(ctx, actor.TenantID, key)
	if err != nil {
		e.logger.Warn("override lookup failed, treating as no override",
			slog.Int64("tenant", actor.TenantID),
			slog.String("capability", string(key)),
			slog.Any("error", err))
		sets = nil
	}
	if sets == nil {
		return allow(ReasonNoOverride)
	}

	if actor.HasAnyRole(sets.Denied) {
		return deny(ReasonDenyListed, "Your role is denied from using this feature.")
	}

	if len(sets.Allowed) == 0 {
		return allow(ReasonNoOverride)
	}
	if actor.HasAnyRole(sets.Allowed) {
		return allow(ReasonAllowListed)
	}
	return deny(ReasonNotAllowListed, "Your roles are not allowed to use this feature.")
}
