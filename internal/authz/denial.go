package authz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logiq-bot/logiq/internal/capability"
)

// DenialNotifier logs denial events at most once per
// (tenant, user, capability) within a window. The throttle state lives in
// redis so replicas share it.
type DenialNotifier struct {
	client *redis.Client
	logger *slog.Logger
	window time.Duration
}

// NewDenialNotifier constructs a throttled denial logger.
func NewDenialNotifier(client *redis.Client, logger *slog.Logger, window time.Duration) *DenialNotifier {
	if window <= 0 {
		window = time.Minute
	}
	return &DenialNotifier{client: client, logger: logger, window: window}
}

// Notify records a denial, suppressing repeats inside the window. Throttle
// failures are swallowed: a denial log is never worth failing a request over.
func (n *DenialNotifier) Notify(ctx context.Context, actor Actor, key capability.Key, reason Reason) {
	if n == nil {
		return
	}
	fresh, err := n.client.SetNX(ctx, n.key(actor, key), time.Now().Unix(), n.window).Result()
	if err != nil {
		n.logger.Debug("denial throttle unavailable", slog.Any("error", err))
		return
	}
	if !fresh {
		return
	}
	n.logger.Warn("capability denied",
		slog.Int64("tenant", actor.TenantID),
		slog.Int64("user", actor.UserID),
		slog.String("capability", string(key)),
		slog.String("reason", string(reason)))
}

func (n *DenialNotifier) key(actor Actor, key capability.Key) string {
	return fmt.Sprintf("denial:%d:%d:%s", actor.TenantID, actor.UserID, key)
}
