package cache_test

import (
	"context"
	"testing"
	"time"

	"prayogai-rag/internal/cache"
	"prayogai-rag/internal/vectorindex"
)

func TestMemoryCacheNormalisesQueries(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(time.Minute)
	hits := []vectorindex.Hit{{PassageID: "p1", Score: 0.9}}

	if err := c.Set(ctx, "bot", "What is  PrayogAI?", hits); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "bot", "  what is prayogai? ")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got %v, %v", ok, err)
	}
	if len(got) != 1 || got[0].PassageID != "p1" {
		t.Errorf("unexpected hits %+v", got)
	}
	if _, ok, _ := c.Get(ctx, "other-bot", "What is PrayogAI?"); ok {
		t.Error("cache entry leaked across bots")
	}
}

func TestMemoryCacheInvalidateBot(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(time.Minute)
	_ = c.Set(ctx, "a", "q1", nil)
	_ = c.Set(ctx, "a", "q2", nil)
	_ = c.Set(ctx, "b", "q1", nil)

	if err := c.InvalidateBot(ctx, "a"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, q := range []string{"q1", "q2"} {
		if _, ok, _ := c.Get(ctx, "a", q); ok {
			t.Errorf("entry %s survived invalidation", q)
		}
	}
	if _, ok, _ := c.Get(ctx, "b", "q1"); !ok {
		t.Error("invalidating a dropped b's entries")
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(10 * time.Millisecond)
	_ = c.Set(ctx, "a", "q", nil)
	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "a", "q"); ok {
		t.Error("entry did not expire")
	}
}

func TestNoopCache(t *testing.T) {
	var c cache.RetrievalCache = cache.NoopCache{}
	_ = c.Set(context.Background(), "a", "q", []vectorindex.Hit{{PassageID: "p"}})
	if _, ok, _ := c.Get(context.Background(), "a", "q"); ok {
		t.Error("noop cache returned a hit")
	}
}
