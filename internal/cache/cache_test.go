package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryReportCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryReportCache()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "cashflow:2024-01", []byte(`{"net":"1"}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "cashflow:2024-01"); !ok {
		t.Fatalf("expected fresh entry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "cashflow:2024-01"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestNoopReportCacheNeverHits(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	_ = c.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, ok, _ := c.Get(context.Background(), "k"); ok {
		t.Fatalf("noop cache must not hit")
	}
}
