package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"cinereads/models"
)

// badger按写入时刻计算物理过期，比逻辑TTL多留一段时间，过期判断仍以Cache为准
const badgerTTLGrace = 5 * time.Minute

// value log 中可回收空间超过该比例时重写
const badgerGCDiscardRatio = 0.5

// BadgerStore 基于BadgerDB的嵌入式持久化缓存
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore 打开指定目录的BadgerDB，path为空时使用内存模式
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Name() string { return "badger" }

func (s *BadgerStore) Get(_ context.Context, cacheType, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(storageKey(cacheType, key)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BadgerStore) Put(_ context.Context, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	ttl := time.Duration(entry.TTLSeconds)*time.Second + badgerTTLGrace

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(storageKey(entry.Type, entry.Key)), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

func (s *BadgerStore) Delete(_ context.Context, cacheType, key string) error {
	k := []byte(storageKey(cacheType, key))
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

func (s *BadgerStore) Clear(_ context.Context, cacheType string) (int, error) {
	removed := 0
	for _, t := range typesFor(cacheType) {
		prefix := []byte(t + "/")
		n, err := s.countPrefix(prefix)
		if err != nil {
			return removed, err
		}
		if n == 0 {
			continue
		}
		if err := s.db.DropPrefix(prefix); err != nil {
			return removed, fmt.Errorf("drop prefix %s: %w", t, err)
		}
		removed += n
	}
	return removed, nil
}

func (s *BadgerStore) Stats(_ context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			cacheType, _, ok := strings.Cut(string(item.Key()), "/")
			if !ok {
				continue
			}
			stats.Add(cacheType, item.EstimatedSize())
		}
		return nil
	})
	return stats, err
}

// Sweep 逻辑过期或无法解析的记录批量删除
func (s *BadgerStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var entry models.CacheEntry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil || entry.IsExpired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(expired), nil
}

// Compact 反复执行value log GC直到没有可回收的文件
func (s *BadgerStore) Compact(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(badgerGCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) countPrefix(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
