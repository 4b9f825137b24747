package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyBackend struct {
	*fakeStore
	pings int
}

func (b *flakyBackend) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 1, time.Minute, nil
}

func (b *flakyBackend) Ping(context.Context) error { b.pings++; return nil }
func (b *flakyBackend) Close() error               { return nil }

func TestBreakerStoreOpensAfterConsecutiveFailures(t *testing.T) {
	backend := &flakyBackend{fakeStore: newFakeStore()}
	backend.getErr = errors.New("dial tcp: connection refused")
	store := NewBreakerStore(backend, BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		_, _, err := store.Get(context.Background(), KeyProducts)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, store.State())

	calls := backend.gets.Load()
	_, _, err := store.Get(context.Background(), KeyProducts)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, calls, backend.gets.Load(), "open breaker does not reach the backend")

	require.NoError(t, store.Ping(context.Background()))
	require.Equal(t, 1, backend.pings)
}

func TestBreakerStorePassesThroughWhenHealthy(t *testing.T) {
	backend := &flakyBackend{fakeStore: newFakeStore()}
	store := NewBreakerStore(backend, BreakerConfig{})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyUsers, []byte("[]"), time.Minute))
	value, ok, err := store.Get(ctx, KeyUsers)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "[]", string(value))

	count, _, err := store.IncrementWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.NoError(t, store.Delete(ctx, KeyUsers))
	require.Equal(t, gobreaker.StateClosed, store.State())
}

func TestCollectionDegradesBehindOpenBreaker(t *testing.T) {
	backend := &flakyBackend{fakeStore: newFakeStore()}
	backend.getErr = errors.New("timeout")
	backend.setErr = errors.New("timeout")
	store := NewBreakerStore(backend, BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Hour})
	c, err := NewCollection(store, CollectionOptions[[]snapshotItem]{Key: KeyCategories, TTL: time.Hour, Logger: zap.NewNop()})
	require.NoError(t, err)
	loader := &countingLoader{items: []snapshotItem{{ID: 1}}}

	for i := 0; i < 3; i++ {
		items, outcome, err := c.GetOrPopulate(context.Background(), loader.load)
		require.NoError(t, err)
		require.Equal(t, OutcomeMissDegraded, outcome)
		require.Len(t, items, 1)
	}
	require.EqualValues(t, 3, loader.calls.Load())
	require.EqualValues(t, 1, backend.gets.Load())
}
