package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	entries []Entry

	insertErr error
	windowErr error

	lastOffset int
	lastLimit  int
}

func (m *mockStore) Insert(ctx context.Context, e Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockStore) Window(ctx context.Context, tenantID int64, f TimelineFilters, offset, limit int) ([]Entry, error) {
	if m.windowErr != nil {
		return nil, m.windowErr
	}
	m.lastOffset = offset
	m.lastLimit = limit
	var matched []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.TenantID != tenantID {
			continue
		}
		if f.Capability != "" && e.Capability != f.Capability {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		matched = append(matched, e)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func seed(t *testing.T, svc *Service, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := svc.Record(context.Background(), Entry{
			TenantID:   1,
			Capability: "mod.warn",
			ActorID:    100,
			Kind:       KindGrant,
		})
		require.NoError(t, err)
	}
}

func TestRecordStampsTime(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, slog.Default())

	err := svc.Record(context.Background(), Entry{TenantID: 1, Capability: "mod.warn", Kind: KindGrant})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.False(t, store.entries[0].At.IsZero())
}

func TestRecordKeepsExplicitTime(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, slog.Default())
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	err := svc.Record(context.Background(), Entry{TenantID: 1, Capability: "mod.warn", Kind: KindGrant, At: at})
	require.NoError(t, err)
	assert.Equal(t, at, store.entries[0].At)
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	svc := NewService(&mockStore{}, slog.Default())

	assert.Error(t, svc.Record(context.Background(), Entry{TenantID: 1, Kind: KindGrant}))
	assert.Error(t, svc.Record(context.Background(), Entry{TenantID: 1, Capability: "mod.warn"}))
}

func TestTimelineDefaultsPaging(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, slog.Default())
	seed(t, svc, 5)

	res, err := svc.Timeline(context.Background(), 1, TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
	assert.Equal(t, 1, res.Paging.Page)
	assert.Equal(t, 20, res.Paging.PageSize)
	assert.False(t, res.Paging.HasNext)
	assert.Equal(t, 0, store.lastOffset)
	assert.Equal(t, 21, store.lastLimit)
}

func TestTimelineDetectsNextPage(t *testing.T) {
	svc := NewService(&mockStore{}, slog.Default())
	seed(t, svc, 7)

	res, err := svc.Timeline(context.Background(), 1, TimelineFilters{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.NextPage)
	assert.Zero(t, res.Paging.PrevPage)

	res, err = svc.Timeline(context.Background(), 1, TimelineFilters{Page: 3, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.False(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.PrevPage)
}

func TestTimelineCapsPageSize(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, slog.Default())
	seed(t, svc, 1)

	_, err := svc.Timeline(context.Background(), 1, TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 51, store.lastLimit)
}

func TestTimelinePropagatesStoreError(t *testing.T) {
	svc := NewService(&mockStore{windowErr: errors.New("db down")}, slog.Default())

	_, err := svc.Timeline(context.Background(), 1, TimelineFilters{})
	assert.Error(t, err)
}
