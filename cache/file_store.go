package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"cinereads/models"
)

// 写入中途留下的临时文件超过该时间会在压缩时删除
const orphanTempAge = time.Hour

// FileStore 本地文件缓存，每种类型一个子目录，每条记录一个JSON文件
type FileStore struct {
	dir string
}

// NewFileStore 创建文件缓存并确保各类型子目录存在
func NewFileStore(dir string) (*FileStore, error) {
	for _, t := range models.CacheTypes {
		if err := os.MkdirAll(filepath.Join(dir, t), 0o755); err != nil {
			return nil, fmt.Errorf("创建缓存目录失败: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return "file" }

// Dir 缓存根目录
func (s *FileStore) Dir() string { return s.dir }

// Path 记录对应的文件路径
func (s *FileStore) Path(cacheType, key string) string {
	return EntryPath(s.dir, cacheType, key)
}

// EntryPath 根据根目录、类型和键计算文件路径
func EntryPath(dir, cacheType, key string) string {
	return filepath.Join(dir, cacheType, FileName(key))
}

func (s *FileStore) Get(_ context.Context, cacheType, key string) (*models.CacheEntry, error) {
	data, err := os.ReadFile(s.Path(cacheType, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// 损坏的文件留给 Sweep 删除或被下一次 Put 覆盖
		return nil, fmt.Errorf("缓存文件损坏: %w", err)
	}
	return &entry, nil
}

// Put 先写临时文件再重命名，读取方不会看到写了一半的内容
func (s *FileStore) Put(_ context.Context, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	target := s.Path(entry.Type, entry.Key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, cacheType, key string) error {
	err := os.Remove(s.Path(cacheType, key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Clear(_ context.Context, cacheType string) (int, error) {
	removed := 0
	var errs []error
	for _, t := range typesFor(cacheType) {
		files, err := s.entryFiles(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range files {
			if err := os.Remove(f); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func (s *FileStore) Stats(_ context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	for _, t := range models.CacheTypes {
		files, err := s.entryFiles(t)
		if err != nil {
			return stats, err
		}
		for _, f := range files {
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			stats.Add(t, info.Size())
		}
	}
	return stats, nil
}

// Sweep 读取每个文件判断是否过期，无法解析的文件同样删除
func (s *FileStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for _, t := range models.CacheTypes {
		files, err := s.entryFiles(t)
		if err != nil {
			return removed, err
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			data, err := os.ReadFile(f)
			if err != nil {
				continue
			}
			var entry models.CacheEntry
			if json.Unmarshal(data, &entry) == nil && !entry.IsExpired(now) {
				continue
			}
			if os.Remove(f) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Compact 删除写入中断遗留的临时文件
func (s *FileStore) Compact(_ context.Context) error {
	cutoff := time.Now().Add(-orphanTempAge)
	for _, t := range models.CacheTypes {
		tmps, err := filepath.Glob(filepath.Join(s.dir, t, "*.tmp"))
		if err != nil {
			return err
		}
		for _, f := range tmps {
			info, err := os.Stat(f)
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			_ = os.Remove(f)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) entryFiles(cacheType string) ([]string, error) {
	dir := filepath.Join(s.dir, cacheType)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// typesFor 空类型表示全部类型
func typesFor(cacheType string) []string {
	if cacheType == "" {
		return models.CacheTypes
	}
	return []string{cacheType}
}
