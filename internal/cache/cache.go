package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/templatesync/templatesync/internal/locks"
)

var ErrCacheMiss = errors.New("cache miss")

// FileCache stores one JSON encoded value on disk for a limited time, keeping
// the last stored value in memory as well.
type FileCache[T any] struct {
	dur            time.Duration
	mutex          sync.Mutex
	dir            string
	value          *T
	valueExpiresAt time.Time
	key            string
}

type CacheSettings struct {
	Key       string
	Namespace string
	// Version, when set, is part of the file name so entries written by
	// another version of the CLI are never read.
	Version  string
	Duration time.Duration
	// Dir overrides the default ~/.templatesync/cache location.
	Dir string
}

func NewFileCache[T any](settings CacheSettings) (*FileCache[T], error) {
	dir := settings.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".templatesync", "cache")
	}

	DeleteOldCache(dir, settings.Namespace, settings.Duration)

	builder := strings.Builder{}
	builder.WriteString(settings.Namespace)
	builder.WriteString(".")
	builder.WriteString(encode(settings.Key))
	if settings.Version != "" {
		builder.WriteString(".")
		builder.WriteString(settings.Version)
	}
	builder.WriteString(".tmp.json")

	return &FileCache[T]{
		dur: settings.Duration,
		dir: dir,
		key: builder.String(),
	}, nil
}

func encode(key string) string {
	// hash it, trim it: we want this to be around 8 chars long
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
	return hash[:8]
}

// DeleteOldCache removes expired entries of a namespace, and anything older
// than a week regardless of namespace.
func DeleteOldCache(dir string, namespace string, dur time.Duration) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		fileInfo, err := file.Info()
		if err != nil {
			continue
		}
		if !strings.HasPrefix(file.Name(), namespace+".") {
			if time.Since(fileInfo.ModTime()) > time.Hour*24*7 {
				_ = os.Remove(filepath.Join(dir, file.Name()))
			}
			continue
		}
		if time.Since(fileInfo.ModTime()) > dur {
			_ = os.Remove(filepath.Join(dir, file.Name()))
		}
	}
}

func (c *FileCache[T]) filePath() string {
	return filepath.Join(c.dir, c.key)
}

func (c *FileCache[T]) Get() (*T, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.value != nil && time.Now().Before(c.valueExpiresAt) {
		return c.value, nil
	}

	filePath := c.filePath()
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, ErrCacheMiss
	}
	if fileInfo.ModTime().Add(c.dur).Before(time.Now()) {
		_ = os.Remove(filePath)
		return nil, ErrCacheMiss
	}

	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		_ = os.Remove(filePath)
		return nil, ErrCacheMiss
	}

	value := new(T)
	if err := json.Unmarshal(fileBytes, value); err != nil {
		_ = os.Remove(filePath)
		return nil, ErrCacheMiss
	}

	return value, nil
}

func (c *FileCache[T]) Store(value *T) error {
	if c == nil {
		return nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	if err := locks.WithLock(context.Background(), c.filePath(), func() error {
		return os.WriteFile(c.filePath(), data, 0o644)
	}); err != nil {
		return err
	}

	c.value = value
	c.valueExpiresAt = time.Now().Add(c.dur)

	return nil
}

func (c *FileCache[T]) Delete() error {
	if c == nil {
		return nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.value = nil
	if err := os.Remove(c.filePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// GetOrLoad returns the cached value, calling load and storing its result on
// a miss. A failed store is not an error since the value is still usable.
func GetOrLoad[T any](c *FileCache[T], load func() (*T, error)) (*T, error) {
	if v, err := c.Get(); err == nil {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	_ = c.Store(v)
	return v, nil
}
