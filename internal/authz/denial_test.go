package authz

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiq-bot/logiq/internal/capability"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestNotifySetsThrottleKey(t *testing.T) {
	client := newTestRedis(t)
	notifier := NewDenialNotifier(client, slog.Default(), time.Minute)
	actor := Actor{TenantID: 1, UserID: 100}

	notifier.Notify(context.Background(), actor, capability.ModWarn, ReasonDenyListed)

	exists, err := client.Exists(context.Background(), "denial:1:100:mod.warn").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestNotifyThrottlesWithinWindow(t *testing.T) {
	client := newTestRedis(t)
	notifier := NewDenialNotifier(client, slog.Default(), time.Minute)
	actor := Actor{TenantID: 1, UserID: 100}
	ctx := context.Background()

	notifier.Notify(ctx, actor, capability.ModWarn, ReasonDenyListed)
	ttlAfterFirst, err := client.TTL(ctx, "denial:1:100:mod.warn").Result()
	require.NoError(t, err)

	notifier.Notify(ctx, actor, capability.ModWarn, ReasonDenyListed)
	ttlAfterSecond, err := client.TTL(ctx, "denial:1:100:mod.warn").Result()
	require.NoError(t, err)

	// SetNX must not refresh the window on suppressed repeats.
	assert.LessOrEqual(t, ttlAfterSecond, ttlAfterFirst)
}

func TestNotifyKeysAreScopedPerUserAndCapability(t *testing.T) {
	client := newTestRedis(t)
	notifier := NewDenialNotifier(client, slog.Default(), time.Minute)
	ctx := context.Background()

	notifier.Notify(ctx, Actor{TenantID: 1, UserID: 100}, capability.ModWarn, ReasonDenyListed)
	notifier.Notify(ctx, Actor{TenantID: 1, UserID: 101}, capability.ModWarn, ReasonDenyListed)
	notifier.Notify(ctx, Actor{TenantID: 1, UserID: 100}, capability.ModBan, ReasonDenyListed)

	keys, err := client.Keys(ctx, "denial:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestNotifySurvivesRedisFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	notifier := NewDenialNotifier(client, slog.Default(), time.Minute)
	notifier.Notify(context.Background(), Actor{TenantID: 1, UserID: 100}, capability.ModWarn, ReasonDenyListed)
}
