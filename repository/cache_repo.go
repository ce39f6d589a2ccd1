package repository

import (
	"context"
	"database/sql"
	"time"

	"cinereads/cache"
	"cinereads/models"
	"cinereads/utils"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_type  VARCHAR(32)  NOT NULL,
	cache_key   VARCHAR(191) NOT NULL,
	value       LONGBLOB     NOT NULL,
	created_at  DATETIME(6)  NOT NULL,
	ttl_seconds BIGINT       NOT NULL,
	expires_at  DATETIME(6)  NOT NULL,
	version     VARCHAR(16)  NOT NULL,
	PRIMARY KEY (cache_type, cache_key),
	KEY idx_cache_entries_expires_at (expires_at)
) DEFAULT CHARSET=utf8mb4`

// MySQLCacheStore 把缓存记录存到MySQL，多个实例可以共用同一份缓存
type MySQLCacheStore struct {
	db *sql.DB
}

// NewMySQLCacheStore 创建存储并确保表存在
func NewMySQLCacheStore(ctx context.Context, db *sql.DB) (*MySQLCacheStore, error) {
	if _, err := db.ExecContext(ctx, createCacheTable); err != nil {
		return nil, err
	}
	return &MySQLCacheStore{db: db}, nil
}

func (s *MySQLCacheStore) Name() string { return "mysql" }

func (s *MySQLCacheStore) Get(ctx context.Context, cacheType, key string) (*models.CacheEntry, error) {
	entry := models.CacheEntry{Key: key, Type: cacheType}
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value, created_at, ttl_seconds, version
		FROM cache_entries
		WHERE cache_type = ? AND cache_key = ?
	`, cacheType, key).Scan(&value, &entry.CreatedAt, &entry.TTLSeconds, &entry.Version)
	if err != nil {
		if utils.IsSQLNoRowsError(err) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	entry.Value = value
	return &entry, nil
}

func (s *MySQLCacheStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	created := entry.CreatedAt.UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_type, cache_key, value, created_at, ttl_seconds, expires_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			value = VALUES(value),
			created_at = VALUES(created_at),
			ttl_seconds = VALUES(ttl_seconds),
			expires_at = VALUES(expires_at),
			version = VALUES(version)
	`, entry.Type, entry.Key, []byte(entry.Value), created, entry.TTLSeconds, entry.ExpiresAt().UTC(), entry.Version)
	return err
}

func (s *MySQLCacheStore) Delete(ctx context.Context, cacheType, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_type = ? AND cache_key = ?`, cacheType, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cache.ErrNotFound
	}
	return nil
}

func (s *MySQLCacheStore) Clear(ctx context.Context, cacheType string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if cacheType == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_type = ?`, cacheType)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *MySQLCacheStore) Stats(ctx context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_type, COUNT(*), COALESCE(SUM(LENGTH(value) + LENGTH(cache_key)), 0)
		FROM cache_entries
		GROUP BY cache_type
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.ByType = make(map[string]models.CacheTypeStats)
	for rows.Next() {
		var (
			cacheType string
			ts        models.CacheTypeStats
		)
		if err := rows.Scan(&cacheType, &ts.Entries, &ts.SizeBytes); err != nil {
			return stats, err
		}
		stats.ByType[cacheType] = ts
		stats.TotalEntries += ts.Entries
		stats.TotalSizeBytes += ts.SizeBytes
	}
	return stats, rows.Err()
}

func (s *MySQLCacheStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Compact 清理删除后留下的表空间碎片
func (s *MySQLCacheStore) Compact(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `OPTIMIZE TABLE cache_entries`)
	if err != nil {
		return err
	}
	return rows.Close()
}

// Close 连接池由调用方关闭
func (s *MySQLCacheStore) Close() error { return nil }

var (
	_ cache.Store     = (*MySQLCacheStore)(nil)
	_ cache.Compactor = (*MySQLCacheStore)(nil)
)
