// Package sanction tracks time-bound suspensions issued against subjects.
// At most one sanction per (tenant, subject) is active at any instant;
// reissuing resolves the prior record rather than erroring. Expiry is
// computed on read, never enforced by a background worker.
package sanction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status values for a stored sanction.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Sanction is one issued time-bound restriction.
type Sanction struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    int64      `json:"tenant_id"`
	SubjectID   int64      `json:"subject_id"`
	ModeratorID int64      `json:"moderator_id"`
	Reason      string     `json:"reason"`
	Duration    int64      `json:"duration_seconds"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *int64     `json:"resolved_by,omitempty"`
}

// InEffect reports whether the sanction restricts the subject at the given
// instant. A stored "active" row whose timer lapsed is not in effect; the
// ledger never assumes the platform lifted it.
func (s Sanction) InEffect(now time.Time) bool {
	return s.Status == StatusActive && s.EndsAt.After(now)
}

// StatusView is the read-only projection exposed to callers.
type StatusView struct {
	Active *Sanction  `json:"active"`
	Recent []Sanction `json:"recent"`
}

var (
	// ErrInvalidDuration indicates the duration is not one of the configured
	// enumerated values. Rejected before any write.
	ErrInvalidDuration = errors.New("sanction: duration not permitted")
	// ErrConcurrencyConflict indicates the issue sequence lost to a
	// concurrent writer even after the internal retry.
	ErrConcurrencyConflict = errors.New("sanction: concurrent modification")
)
