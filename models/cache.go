package models

import (
	"encoding/json"
	"time"
)

// 缓存类型
const (
	CacheTypeRecommendations = "recommendations"
	CacheTypeBooks           = "books"
	CacheTypeTasteProfiles   = "taste_profiles"
)

// CacheTypes 所有已知的缓存类型
var CacheTypes = []string{CacheTypeRecommendations, CacheTypeBooks, CacheTypeTasteProfiles}

// IsKnownCacheType 判断是否为已知缓存类型
func IsKnownCacheType(t string) bool {
	for _, known := range CacheTypes {
		if known == t {
			return true
		}
	}
	return false
}

// CacheEntry 缓存记录，写入后不再修改，只会整体覆盖
type CacheEntry struct {
	Key        string          `json:"key"`
	Type       string          `json:"cache_type"`
	Value      json.RawMessage `json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Version    string          `json:"version"`
}

// ExpiresAt 过期时间点
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// IsExpired now - created_at 超过 ttl 即视为过期
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > time.Duration(e.TTLSeconds)*time.Second
}

// CacheTypeStats 单个缓存类型的统计
type CacheTypeStats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Backend        string                    `json:"backend"`
	TotalEntries   int                       `json:"total_entries"`
	TotalSizeBytes int64                     `json:"total_size_bytes"`
	ByType         map[string]CacheTypeStats `json:"by_type"`
}

// Add 累加一条记录到统计中
func (s *CacheStats) Add(cacheType string, size int64) {
	if s.ByType == nil {
		s.ByType = make(map[string]CacheTypeStats)
	}
	ts := s.ByType[cacheType]
	ts.Entries++
	ts.SizeBytes += size
	s.ByType[cacheType] = ts
	s.TotalEntries++
	s.TotalSizeBytes += size
}
