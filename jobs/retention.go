package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// AuditPruner deletes audit entries older than a cutoff.
type AuditPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SanctionPruner deletes resolved sanctions whose end passed before a cutoff.
type SanctionPruner interface {
	PruneResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention bundles the prune task handlers. It trims history only; sanction
// expiry itself is computed on read and never enforced here.
type Retention struct {
	Audits    AuditPruner
	Sanctions SanctionPruner
	Logger    *slog.Logger
}

// HandleAuditPrune processes TaskAuditPrune tasks.
func (r *Retention) HandleAuditPrune(ctx context.Context, t *asynq.Task) error {
	cutoff, err := r.cutoff(t)
	if err != nil {
		return asynq.SkipRetry
	}
	n, err := r.Audits.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	r.Logger.Info("pruned audit entries", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	return nil
}

// HandleSanctionPrune processes TaskSanctionPrune tasks.
func (r *Retention) HandleSanctionPrune(ctx context.Context, t *asynq.Task) error {
	cutoff, err := r.cutoff(t)
	if err != nil {
		return asynq.SkipRetry
	}
	n, err := r.Sanctions.PruneResolvedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	r.Logger.Info("pruned resolved sanctions", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	return nil
}

func (r *Retention) cutoff(t *asynq.Task) (time.Time, error) {
	var payload RetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return time.Time{}, err
	}
	horizon, err := time.ParseDuration(payload.OlderThan)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().UTC().Add(-horizon), nil
}
