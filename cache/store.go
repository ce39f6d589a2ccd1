// Package cache 提供推荐结果与书目元数据的响应缓存
//
// Cache 负责TTL判断、序列化与错误降级，Store 只负责按 (类型, 键) 存取整条记录。
// 记录写入后不会被原地修改，只会被整体覆盖，因此各实现无需跨请求加锁。
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinereads/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("cache: entry not found")

// Store 缓存存储后端
type Store interface {
	// Name 后端名称，用于统计输出
	Name() string
	// Get 读取记录，不存在时返回 ErrNotFound；不判断是否过期
	Get(ctx context.Context, cacheType, key string) (*models.CacheEntry, error)
	// Put 整体写入或覆盖记录
	Put(ctx context.Context, entry *models.CacheEntry) error
	Delete(ctx context.Context, cacheType, key string) error
	// Clear 删除指定类型的全部记录，cacheType为空时删除所有记录，返回删除数量
	Clear(ctx context.Context, cacheType string) (int, error)
	Stats(ctx context.Context) (models.CacheStats, error)
	// Sweep 删除在 now 时刻已过期的记录，返回删除数量
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Compactor 支持压缩回收空间的后端可选实现
type Compactor interface {
	Compact(ctx context.Context) error
}

// CacheError 缓存读写失败，调用方在本地降级处理
type CacheError struct {
	Op        string
	CacheType string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s/%s: %v", e.Op, e.CacheType, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// storageKey 拼接后端内部使用的键
func storageKey(cacheType, key string) string {
	return cacheType + "/" + key
}
