package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cinereads/metrics"
	"cinereads/models"
)

func TestCacheRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, NewMemoryStore(0))
	typ := models.CacheTypeTasteProfiles
	key := TasteProfileKey([]string{"Arrival"}, nil)

	hits := testutil.ToFloat64(metrics.CacheHits.WithLabelValues(typ))
	misses := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues(typ))
	swept := testutil.ToFloat64(metrics.CacheSweptEntries)

	var profile models.TasteProfile
	c.Get(ctx, typ, key, &profile)
	if err := c.Put(ctx, typ, key, models.TasteProfile{NarrativeStyle: "quiet"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	c.Get(ctx, typ, key, &profile)

	if got := testutil.ToFloat64(metrics.CacheHits.WithLabelValues(typ)) - hits; got != 1 {
		t.Fatalf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues(typ)) - misses; got != 1 {
		t.Fatalf("misses delta = %v, want 1", got)
	}

	clock.now = clock.now.Add(DefaultTTL + time.Second)
	if n, err := c.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("sweep removed %d entries, err %v", n, err)
	}
	if got := testutil.ToFloat64(metrics.CacheSweptEntries) - swept; got != 1 {
		t.Fatalf("swept delta = %v, want 1", got)
	}
}
