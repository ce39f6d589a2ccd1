package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"cinereads/logger"
	"cinereads/metrics"
	"cinereads/models"
)

// EntryVersion 写入记录的格式版本
const EntryVersion = "3.0"

// DefaultTTL 未单独配置的缓存类型使用的TTL
const DefaultTTL = time.Hour

// ErrUnknownType 未知的缓存类型
var ErrUnknownType = errors.New("unknown cache type")

// Cache 在Store之上提供TTL、序列化与错误降级
type Cache struct {
	store Store
	ttls  map[string]time.Duration
	now   func() time.Time
	log   *slog.Logger
}

// Option 缓存配置项
type Option func(*Cache)

// WithTTL 设置某个缓存类型的TTL
func WithTTL(cacheType string, ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttls[cacheType] = ttl
		}
	}
}

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger 使用指定的日志记录器
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

// New 创建缓存
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttls:  make(map[string]time.Duration),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.With("component", "cache", "backend", store.Name())
	}
	return c
}

// Backend 后端名称
func (c *Cache) Backend() string {
	return c.store.Name()
}

// TTL 返回缓存类型对应的TTL
func (c *Cache) TTL(cacheType string) time.Duration {
	if ttl, ok := c.ttls[cacheType]; ok {
		return ttl
	}
	return DefaultTTL
}

// Get 读取未过期的记录并反序列化到dst，返回是否命中
//
// 读取失败、记录过期或内容损坏都按未命中处理。读路径不删除记录，
// 过期记录由 Sweep 回收，损坏的记录会被下一次 Put 整体覆盖。
func (c *Cache) Get(ctx context.Context, cacheType, key string, dst interface{}) bool {
	entry, err := c.store.Get(ctx, cacheType, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.recordError(&CacheError{Op: "get", CacheType: cacheType, Key: key, Err: err})
		}
		metrics.CacheMisses.WithLabelValues(cacheType).Inc()
		return false
	}

	if entry.IsExpired(c.now()) {
		c.log.Debug("缓存已过期", "cache_type", cacheType, "key", key, "created_at", entry.CreatedAt)
		metrics.CacheMisses.WithLabelValues(cacheType).Inc()
		return false
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		c.recordError(&CacheError{Op: "decode", CacheType: cacheType, Key: key, Err: err})
		metrics.CacheMisses.WithLabelValues(cacheType).Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues(cacheType).Inc()
	c.log.Debug("缓存命中", "cache_type", cacheType, "key", key)
	return true
}

// Put 序列化value并整体覆盖写入，失败时记录警告并返回错误，调用方可以忽略
func (c *Cache) Put(ctx context.Context, cacheType, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		cerr := &CacheError{Op: "encode", CacheType: cacheType, Key: key, Err: err}
		c.recordError(cerr)
		return cerr
	}

	entry := &models.CacheEntry{
		Key:        key,
		Type:       cacheType,
		Value:      raw,
		CreatedAt:  c.now(),
		TTLSeconds: int64(c.TTL(cacheType) / time.Second),
		Version:    EntryVersion,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		cerr := &CacheError{Op: "put", CacheType: cacheType, Key: key, Err: err}
		c.recordError(cerr)
		return cerr
	}
	c.log.Debug("缓存已写入", "cache_type", cacheType, "key", key, "size", len(raw))
	return nil
}

// Delete 删除单条记录
func (c *Cache) Delete(ctx context.Context, cacheType, key string) error {
	if err := c.store.Delete(ctx, cacheType, key); err != nil && !errors.Is(err, ErrNotFound) {
		return &CacheError{Op: "delete", CacheType: cacheType, Key: key, Err: err}
	}
	return nil
}

// Clear 清空指定类型或全部缓存，返回删除数量
func (c *Cache) Clear(ctx context.Context, cacheType string) (int, error) {
	if cacheType != "" && !models.IsKnownCacheType(cacheType) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, cacheType)
	}
	n, err := c.store.Clear(ctx, cacheType)
	if err != nil {
		return n, &CacheError{Op: "clear", CacheType: cacheType, Err: err}
	}
	c.log.Info("缓存已清空", "cache_type", cacheType, "removed", n)
	return n, nil
}

// Stats 缓存统计，所有已知类型都会出现在结果中
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return models.CacheStats{}, &CacheError{Op: "stats", Err: err}
	}
	stats.Backend = c.store.Name()
	if stats.ByType == nil {
		stats.ByType = make(map[string]models.CacheTypeStats)
	}
	for _, t := range models.CacheTypes {
		if _, ok := stats.ByType[t]; !ok {
			stats.ByType[t] = models.CacheTypeStats{}
		}
	}
	return stats, nil
}

// Sweep 删除已过期的记录
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	n, err := c.store.Sweep(ctx, c.now())
	if n > 0 {
		metrics.CacheSweptEntries.Add(float64(n))
	}
	if err != nil {
		return n, &CacheError{Op: "sweep", Err: err}
	}
	return n, nil
}

// Compact 后端支持时执行压缩，不支持时直接返回
func (c *Cache) Compact(ctx context.Context) error {
	compactor, ok := c.store.(Compactor)
	if !ok {
		return nil
	}
	if err := compactor.Compact(ctx); err != nil {
		return &CacheError{Op: "compact", Err: err}
	}
	return nil
}

// Close 关闭底层存储
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) recordError(err *CacheError) {
	metrics.CacheErrors.WithLabelValues(err.CacheType, err.Op).Inc()
	c.log.Warn("缓存操作失败", "op", err.Op, "cache_type", err.CacheType, "key", err.Key, "error", err.Err)
}
