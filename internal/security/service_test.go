package security

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiq-bot/logiq/internal/authz"
)

type mockStore struct {
	configs map[int64]Config
	gets    int
	upserts int
}

func newMockStore() *mockStore {
	return &mockStore{configs: make(map[int64]Config)}
}

func (m *mockStore) Get(ctx context.Context, tenantID int64) (Config, error) {
	m.gets++
	cfg, ok := m.configs[tenantID]
	if !ok {
		return Config{}, ErrNotFound
	}
	return cfg, nil
}

func (m *mockStore) Upsert(ctx context.Context, cfg Config) (Config, error) {
	m.upserts++
	now := time.Now().UTC()
	if existing, ok := m.configs[cfg.TenantID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	m.configs[cfg.TenantID] = cfg
	return cfg, nil
}

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestGetBootstrapsUninitializedConfig(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newTestCache(t), time.Minute, slog.Default())

	cfg, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.TenantID)
	assert.False(t, cfg.Initialized)
	assert.Empty(t, cfg.ProtectedRoleIDs)
	assert.Equal(t, 1, store.upserts)
}

func TestGetServesSecondReadFromCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newTestCache(t), time.Minute, slog.Default())
	ctx := context.Background()

	_, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Get(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, store.gets)
}

func TestGetWorksWithoutCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, time.Minute, slog.Default())

	cfg, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.TenantID)
}

func TestReadyReflectsInitialization(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newTestCache(t), time.Minute, slog.Default())
	ctx := context.Background()

	ready, err := svc.Ready(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ready)

	admin := authz.Actor{TenantID: 1, UserID: 500, IsAdmin: true}
	_, err = svc.Update(ctx, admin, []int64{10}, true)
	require.NoError(t, err)

	ready, err = svc.Ready(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestProtectedOwnerAlways(t *testing.T) {
	svc := NewService(newMockStore(), newTestCache(t), time.Minute, slog.Default())

	protected, err := svc.Protected(context.Background(), authz.Actor{TenantID: 1, UserID: 7, IsOwner: true})
	require.NoError(t, err)
	assert.True(t, protected)
}

func TestProtectedByRole(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newTestCache(t), time.Minute, slog.Default())
	ctx := context.Background()

	admin := authz.Actor{TenantID: 1, UserID: 500, IsAdmin: true}
	_, err := svc.Update(ctx, admin, []int64{10, 20}, true)
	require.NoError(t, err)

	protected, err := svc.Protected(ctx, authz.Actor{TenantID: 1, UserID: 7, RoleIDs: []int64{20}})
	require.NoError(t, err)
	assert.True(t, protected)

	protected, err = svc.Protected(ctx, authz.Actor{TenantID: 1, UserID: 8, RoleIDs: []int64{30}})
	require.NoError(t, err)
	assert.False(t, protected)
}

func TestUpdateRequiresConfigGate(t *testing.T) {
	svc := NewService(newMockStore(), newTestCache(t), time.Minute, slog.Default())

	_, err := svc.Update(context.Background(), authz.Actor{TenantID: 1, UserID: 7}, []int64{10}, true)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestUpdateRefreshesCache(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newTestCache(t), time.Minute, slog.Default())
	ctx := context.Background()

	_, err := svc.Get(ctx, 1)
	require.NoError(t, err)

	admin := authz.Actor{TenantID: 1, UserID: 500, IsAdmin: true}
	_, err = svc.Update(ctx, admin, []int64{10}, true)
	require.NoError(t, err)

	cfg, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cfg.Initialized)
	assert.Equal(t, []int64{10}, cfg.ProtectedRoleIDs)
	// Second read came from the refreshed cache, not storage.
	assert.Equal(t, 1, store.gets)
}
