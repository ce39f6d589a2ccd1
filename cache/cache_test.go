package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cinereads/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(t *testing.T, store Store) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(store,
		WithClock(clock.Now),
		WithTTL(models.CacheTypeRecommendations, time.Hour),
		WithTTL(models.CacheTypeBooks, 24*time.Hour),
	)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func sampleResponses() []models.RecommendationResponse {
	rating := 4.4
	return []models.RecommendationResponse{{
		Movie: "Interstellar",
		Books: []models.BookRecommendation{{
			Title:  "Project Hail Mary",
			Author: "Andy Weir",
			Reason: "optimistic science",
			Rating: &rating,
		}},
	}}
}

func TestCacheTTLBoundaries(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, NewMemoryStore(0))
	key := RecommendationKey([]string{"Interstellar"}, nil)
	start := clock.now

	if err := c.Put(ctx, models.CacheTypeRecommendations, key, sampleResponses()); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got []models.RecommendationResponse
	clock.now = start.Add(time.Hour - time.Second)
	if !c.Get(ctx, models.CacheTypeRecommendations, key, &got) {
		t.Fatal("expected hit one second before expiry")
	}
	if len(got) != 1 || got[0].Books[0].Title != "Project Hail Mary" {
		t.Fatalf("unexpected cached value: %+v", got)
	}

	clock.now = start.Add(time.Hour)
	if !c.Get(ctx, models.CacheTypeRecommendations, key, &got) {
		t.Fatal("entry exactly at its TTL is still live")
	}

	clock.now = start.Add(time.Hour + time.Second)
	if c.Get(ctx, models.CacheTypeRecommendations, key, &got) {
		t.Fatal("expected miss one second after expiry")
	}

	// 过期记录留给 Sweep 回收
	if _, err := c.store.Get(ctx, models.CacheTypeRecommendations, key); err != nil {
		t.Fatalf("expired entry should stay until sweep, got %v", err)
	}
	if n, err := c.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
	if _, err := c.store.Get(ctx, models.CacheTypeRecommendations, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry to be swept, got %v", err)
	}
}

// racingStore 在第一次读取返回之后模拟另一个请求写入新记录
type racingStore struct {
	*MemoryStore
	afterGet func()
	deletes  int
}

func (s *racingStore) Get(ctx context.Context, cacheType, key string) (*models.CacheEntry, error) {
	entry, err := s.MemoryStore.Get(ctx, cacheType, key)
	if s.afterGet != nil {
		hook := s.afterGet
		s.afterGet = nil
		hook()
	}
	return entry, err
}

func (s *racingStore) Delete(ctx context.Context, cacheType, key string) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, cacheType, key)
}

func TestCacheExpiredReadKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: NewMemoryStore(0)}
	c, clock := newTestCache(t, store)
	key := BookKey("Dune", "Frank Herbert")
	start := clock.now

	if err := c.Put(ctx, models.CacheTypeBooks, key, models.BookMetadata{Title: "old"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock.now = start.Add(25 * time.Hour)

	store.afterGet = func() {
		if err := c.Put(ctx, models.CacheTypeBooks, key, models.BookMetadata{Title: "fresh"}); err != nil {
			t.Errorf("concurrent put: %v", err)
		}
	}
	var meta models.BookMetadata
	if c.Get(ctx, models.CacheTypeBooks, key, &meta) {
		t.Fatal("expired entry must be a miss")
	}
	if store.deletes != 0 {
		t.Fatalf("read path must not delete, deletes = %d", store.deletes)
	}
	if !c.Get(ctx, models.CacheTypeBooks, key, &meta) || meta.Title != "fresh" {
		t.Fatalf("fresh write was lost, got %+v", meta)
	}
}

func TestCachePerTypeTTL(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryStore(0))
	if c.TTL(models.CacheTypeBooks) != 24*time.Hour {
		t.Fatalf("unexpected book TTL %v", c.TTL(models.CacheTypeBooks))
	}
	if c.TTL(models.CacheTypeTasteProfiles) != DefaultTTL {
		t.Fatalf("unconfigured type should use default TTL, got %v", c.TTL(models.CacheTypeTasteProfiles))
	}
}

func TestCachePutOverwrites(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, NewMemoryStore(0))
	key := BookKey("Dune", "Frank Herbert")

	for _, title := range []string{"first", "second"} {
		if err := c.Put(ctx, models.CacheTypeBooks, key, models.BookMetadata{Title: title}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	var meta models.BookMetadata
	if !c.Get(ctx, models.CacheTypeBooks, key, &meta) {
		t.Fatal("expected hit")
	}
	if meta.Title != "second" {
		t.Fatalf("expected last write to win, got %q", meta.Title)
	}
}

func TestCacheCorruptedValueIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	c, clock := newTestCache(t, store)

	entry := &models.CacheEntry{
		Key:        "movies_v3:broken",
		Type:       models.CacheTypeRecommendations,
		Value:      []byte(`{"not":"a list"}`),
		CreatedAt:  clock.now,
		TTLSeconds: 3600,
	}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got []models.RecommendationResponse
	if c.Get(ctx, models.CacheTypeRecommendations, entry.Key, &got) {
		t.Fatal("undecodable value should be a miss")
	}

	if err := c.Put(ctx, models.CacheTypeRecommendations, entry.Key, sampleResponses()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !c.Get(ctx, models.CacheTypeRecommendations, entry.Key, &got) || len(got) != 1 {
		t.Fatalf("rewritten entry should hit, got %+v", got)
	}
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Get(context.Context, string, string) (*models.CacheEntry, error) {
	return nil, os.ErrPermission
}

func (failingStore) Put(context.Context, *models.CacheEntry) error {
	return os.ErrPermission
}

func TestCacheStoreErrorsDegrade(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, failingStore{NewMemoryStore(0)})

	var got []models.RecommendationResponse
	if c.Get(ctx, models.CacheTypeRecommendations, "movies_v3:x", &got) {
		t.Fatal("read error should be reported as miss")
	}

	err := c.Put(ctx, models.CacheTypeRecommendations, "movies_v3:x", sampleResponses())
	var cerr *CacheError
	if !errors.As(err, &cerr) || cerr.Op != "put" {
		t.Fatalf("expected CacheError from put, got %v", err)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestCacheClearRejectsUnknownType(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryStore(0))
	if _, err := c.Clear(context.Background(), "movies"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestCacheStatsListsAllTypes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, NewMemoryStore(0))
	if err := c.Put(ctx, models.CacheTypeBooks, BookKey("Dune", "Frank Herbert"), map[string]string{"title": "Dune"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Backend != "memory" || stats.TotalEntries != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	for _, typ := range models.CacheTypes {
		if _, ok := stats.ByType[typ]; !ok {
			t.Errorf("missing %s in by_type", typ)
		}
	}
	if stats.ByType[models.CacheTypeBooks].Entries != 1 {
		t.Fatalf("expected one book entry, got %+v", stats.ByType)
	}
}

func TestCacheSweep(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, NewMemoryStore(0))
	start := clock.now

	_ = c.Put(ctx, models.CacheTypeRecommendations, "movies_v3:old", sampleResponses())
	clock.now = start.Add(30 * time.Minute)
	_ = c.Put(ctx, models.CacheTypeRecommendations, "movies_v3:new", sampleResponses())

	clock.now = start.Add(time.Hour + time.Minute)
	n, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	var got []models.RecommendationResponse
	if !c.Get(ctx, models.CacheTypeRecommendations, "movies_v3:new", &got) {
		t.Fatal("fresh entry should survive the sweep")
	}
}
