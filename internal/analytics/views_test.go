package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter(t *testing.T, now time.Time) (*ViewCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewViewCounter(rdb, func() time.Time { return now }), mr
}

func TestRecordAndCount(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	v, _ := newTestCounter(t, now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, v.RecordView(ctx, "l1"))
	}
	require.NoError(t, v.RecordView(ctx, "l2"))

	n, err := v.RecentViewCount(ctx, "l1", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = v.RecentViewCount(ctx, "l2", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountSumsAcrossDays(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	v, mr := newTestCounter(t, now)
	ctx := context.Background()

	mr.Set("views:l1:2026-08-15", "4")
	mr.Set("views:l1:2026-08-10", "6")
	// Outside a 30 day window.
	mr.Set("views:l1:2026-06-01", "100")

	n, err := v.RecentViewCount(ctx, "l1", 30)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestCountNoData(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	v, _ := newTestCounter(t, now)

	n, err := v.RecentViewCount(context.Background(), "unknown", 30)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountRedisUnavailable(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	v, mr := newTestCounter(t, now)
	mr.Close()

	_, err := v.RecentViewCount(context.Background(), "l1", 30)
	assert.Error(t, err)
}

func TestRecordViewSetsExpiry(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	v, mr := newTestCounter(t, now)

	require.NoError(t, v.RecordView(context.Background(), "l1"))
	ttl := mr.TTL("views:l1:2026-08-15")
	assert.Greater(t, ttl, 59*24*time.Hour)
}
