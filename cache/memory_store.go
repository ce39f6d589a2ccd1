package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"cinereads/models"
)

// MemoryStore 进程内LRU缓存，容量满时淘汰最久未使用的记录
//
// 过期由Cache按记录自身的TTL判断，LRU本身不设置TTL。
type MemoryStore struct {
	lru *expirable.LRU[string, *models.CacheEntry]
}

// NewMemoryStore 创建内存缓存，maxEntries<=0时不限容量
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryStore{lru: expirable.NewLRU[string, *models.CacheEntry](maxEntries, nil, 0)}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(_ context.Context, cacheType, key string) (*models.CacheEntry, error) {
	entry, ok := s.lru.Get(storageKey(cacheType, key))
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *models.CacheEntry) error {
	s.lru.Add(storageKey(entry.Type, entry.Key), entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, cacheType, key string) error {
	if !s.lru.Remove(storageKey(cacheType, key)) {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, cacheType string) (int, error) {
	if cacheType == "" {
		n := s.lru.Len()
		s.lru.Purge()
		return n, nil
	}
	prefix := cacheType + "/"
	removed := 0
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k, prefix) && s.lru.Remove(k) {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Stats(_ context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	for _, entry := range s.lru.Values() {
		stats.Add(entry.Type, int64(len(entry.Key)+len(entry.Value)))
	}
	return stats, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for _, k := range s.lru.Keys() {
		entry, ok := s.lru.Peek(k)
		if ok && entry.IsExpired(now) && s.lru.Remove(k) {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}
