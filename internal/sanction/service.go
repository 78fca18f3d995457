package sanction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/logiq-bot/logiq/internal/platform/db"
)

// Store is the persistence surface the service needs.
type Store interface {
	Issue(ctx context.Context, s Sanction) error
	Lift(ctx context.Context, tenantID, subjectID, actorID int64, at time.Time) (*Sanction, error)
	ActiveFor(ctx context.Context, tenantID, subjectID int64) (*Sanction, error)
	RecentFor(ctx context.Context, tenantID, subjectID int64, limit int) ([]Sanction, error)
}

// Service is the sanction ledger. Permitted durations come from
// configuration, not from the ledger itself.
type Service struct {
	store        Store
	durations    []time.Duration
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// NewService constructs the ledger.
func NewService(store Store, durations []time.Duration, historyLimit int, logger *slog.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 3
	}
	return &Service{store: store, durations: durations, historyLimit: historyLimit, logger: logger, now: time.Now}
}

// Issue records a new sanction. Any active sanction for the subject is
// resolved in the same storage transaction, with the new issuer as resolver.
// The duration must be one of the configured values; validation happens
// before any write. Issue does not apply the platform restriction — the
// caller does, and must not let the two diverge.
func (s *Service) Issue(ctx context.Context, tenantID, subjectID, moderatorID int64, reason string, duration time.Duration) (Sanction, error) {
	if !s.durationPermitted(duration) {
		return Sanction{}, fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}

	started := s.now().UTC()
	record := Sanction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		SubjectID:   subjectID,
		ModeratorID: moderatorID,
		Reason:      reason,
		Duration:    int64(duration / time.Second),
		StartsAt:    started,
		EndsAt:      started.Add(duration),
		Status:      StatusActive,
	}

	err := s.store.Issue(ctx, record)
	if err != nil && db.IsSerializationFailure(err) {
		err = s.store.Issue(ctx, record)
	}
	if err != nil {
		if db.IsSerializationFailure(err) {
			return Sanction{}, ErrConcurrencyConflict
		}
		return Sanction{}, err
	}
	s.logger.Info("sanction issued",
		slog.Int64("tenant", tenantID),
		slog.Int64("subject", subjectID),
		slog.Int64("moderator", moderatorID),
		slog.Time("ends_at", record.EndsAt))
	return record, nil
}

// Lift resolves the subject's active sanction early. Returns nil without
// error when none was active; the no-op is a signal, not a failure.
func (s *Service) Lift(ctx context.Context, tenantID, subjectID, actorID int64) (*Sanction, error) {
	lifted, err := s.store.Lift(ctx, tenantID, subjectID, actorID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if lifted != nil {
		s.logger.Info("sanction lifted",
			slog.Int64("tenant", tenantID),
			slog.Int64("subject", subjectID),
			slog.Int64("actor", actorID))
	}
	return lifted, nil
}

// Status returns the computed projection for a subject: the sanction
// currently in effect (stored active AND end in the future) plus recent
// history. A lapsed timer needs no write to report as inactive.
func (s *Service) Status(ctx context.Context, tenantID, subjectID int64) (StatusView, error) {
	active, err := s.store.ActiveFor(ctx, tenantID, subjectID)
	if err != nil {
		return StatusView{}, err
	}
	if active != nil && !active.InEffect(s.now()) {
		active = nil
	}
	recent, err := s.store.RecentFor(ctx, tenantID, subjectID, s.historyLimit)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{Active: active, Recent: recent}, nil
}

// Durations exposes the configured permitted durations.
func (s *Service) Durations() []time.Duration {
	out := make([]time.Duration, len(s.durations))
	copy(out, s.durations)
	return out
}

// PermittedDuration reports whether d is one of the configured durations.
// Callers that trigger external side effects before issuing use this to
// reject bad input before anything happens.
func (s *Service) PermittedDuration(d time.Duration) bool {
	return s.durationPermitted(d)
}

func (s *Service) durationPermitted(d time.Duration) bool {
	for _, allowed := range s.durations {
		if d == allowed {
			return true
		}
	}
	return false
}
