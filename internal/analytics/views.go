// Package analytics reads the per-listing view counters used to personalize
// outreach emails. Counters live in Redis under one key per listing per day;
// a missing or unreachable Redis degrades to zero views, never to a blocked
// send.
package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyFormat = "views:%s:%s" // listing id, yyyy-mm-dd
	dayFormat = "2006-01-02"

	// Counter keys outlive any window they could be read through.
	counterTTL = 60 * 24 * time.Hour
)

// ViewCounter reads and records listing view counts.
type ViewCounter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewViewCounter creates a view counter. A nil now defaults to time.Now.
func NewViewCounter(rdb *redis.Client, now func() time.Time) *ViewCounter {
	if now == nil {
		now = time.Now
	}
	return &ViewCounter{rdb: rdb, now: now}
}

// RecordView increments today's counter for a listing.
func (v *ViewCounter) RecordView(ctx context.Context, listingID string) error {
	key := fmt.Sprintf(keyFormat, listingID, v.now().UTC().Format(dayFormat))
	pipe := v.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// RecentViewCount sums the daily counters over the last windowDays days,
// including today. Errors propagate so the caller can decide; the scheduler
// defaults to 0.
func (v *ViewCounter) RecentViewCount(ctx context.Context, listingID string, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = 1
	}
	day := v.now().UTC()
	keys := make([]string, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		keys = append(keys, fmt.Sprintf(keyFormat, listingID, day.AddDate(0, 0, -i).Format(dayFormat)))
	}

	vals, err := v.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("read view counters: %w", err)
	}

	total := 0
	for _, raw := range vals {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			total += n
		}
	}
	return total, nil
}
