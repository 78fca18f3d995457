// Package authz implements the authorization decision engine and the role
// hierarchy guard. Decisions are pure: role membership, rank and the
// owner/administrator flags are supplied by the caller on every call and are
// never cached here.
package authz

// Actor describes a platform member at the moment of a call. The same shape
// is used for targets; the gateway resolves role membership and rank before
// forwarding a request.
type Actor struct {
	TenantID    int64
	UserID      int64
	RoleIDs     []int64
	TopRoleRank int
	IsOwner     bool
	IsAdmin     bool

	// ManageGuild mirrors the platform's native guild-management permission.
	// It feeds the fixed configuration gate, never capability overrides.
	ManageGuild bool
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(roleID int64) bool {
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor holds at least one of the given roles.
func (a Actor) HasAnyRole(roleIDs []int64) bool {
	for _, id := range roleIDs {
		if a.HasRole(id) {
			return true
		}
	}
	return false
}

// Predicate is a capability-specific base eligibility check supplied by the
// calling feature. Overrides can narrow it but never substitute for it.
type Predicate func(actor Actor, target *Actor) bool

// Reason explains a verdict so callers can render specific messages and so
// denial logging stays precise.
type Reason string

const (
	ReasonAdminBypass         Reason = "admin-bypass"
	ReasonBasePredicateFailed Reason = "base-predicate-failed"
	ReasonHierarchyBlocked    Reason = "hierarchy-blocked"
	ReasonDenyListed          Reason = "deny-listed"
	ReasonNotAllowListed      Reason = "not-allow-listed"
	ReasonNoOverride          Reason = "no-override"
	ReasonAllowListed         Reason = "allow-listed"
)

// Verdict is the outcome of a decision.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

func allow(reason Reason) Verdict {
	return Verdict{Allowed: true, Reason: reason}
}

func deny(reason Reason, message string) Verdict {
	return Verdict{Allowed: false, Reason: reason, Message: message}
}

// RoleSets is the override view the engine consumes: the configured allow and
// deny role lists for one (tenant, capability) pair.
type RoleSets struct {
	Allowed []int64
	Denied  []int64
}

// ManageConfig is the fixed gate for override administration. It is
// deliberately immune to the override mechanism itself: a role granted
// configuration rights through an override could otherwise widen its own
// grants.
func ManageConfig(actor Actor) bool {
	return actor.IsOwner || actor.IsAdmin || actor.ManageGuild
}
