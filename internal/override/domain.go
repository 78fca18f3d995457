// Package override stores per-tenant, per-capability allow/deny role lists.
// Records are mutated only through the administrative service; capability
// consumers read them through the decision engine.
package override

import (
	"errors"
	"time"

	"github.com/logiq-bot/logiq/internal/capability"
)

// Record is the override configuration for one (tenant, capability) pair.
// Absence of a record means "no override": the base predicate decides alone.
type Record struct {
	TenantID     int64          `json:"tenant_id"`
	Capability   capability.Key `json:"capability"`
	AllowedRoles []int64        `json:"allowed_roles"`
	DeniedRoles  []int64        `json:"denied_roles"`
	UpdatedBy    int64          `json:"updated_by"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

var (
	// ErrNotFound indicates no override record exists for the pair.
	ErrNotFound = errors.New("override: not found")
	// ErrNotPermitted indicates the actor fails the fixed configuration gate.
	ErrNotPermitted = errors.New("override: not permitted to manage configuration")
	// ErrUnknownCapability indicates the key is not in the catalog.
	ErrUnknownCapability = errors.New("override: unknown capability")
	// ErrConcurrencyConflict indicates a concurrent mutation lost even after
	// the internal retry. Safe to retry from the caller.
	ErrConcurrencyConflict = errors.New("override: concurrent modification")
)

func addRole(roles []int64, id int64) []int64 {
	for _, r := range roles {
		if r == id {
			return roles
		}
	}
	return append(roles, id)
}

func removeRole(roles []int64, id int64) []int64 {
	out := roles[:0]
	for _, r := range roles {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}
