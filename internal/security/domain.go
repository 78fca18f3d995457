// Package security holds per-tenant protected-role configuration. Sensitive
// moderation capabilities stay locked until an administrator confirms the
// protected role set for the tenant.
package security

import (
	"errors"
	"time"
)

// Config is the security configuration for one tenant.
type Config struct {
	TenantID         int64     `json:"tenant_id"`
	ProtectedRoleIDs []int64   `json:"protected_role_ids"`
	Initialized      bool      `json:"initialized"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ErrNotPermitted indicates the actor fails the fixed configuration gate.
var ErrNotPermitted = errors.New("security: not permitted to manage configuration")
