// Package cache implements the file-based query result cache: one file per
// query, keyed by a hash of the final SQL text, with TTL expiry. Entries are
// gob-encoded and zstd-compressed. A corrupt or expired entry is deleted and
// reported as a miss, never as an error.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"tipline/internal/errors"
	"tipline/internal/logging"
)

const (
	entrySuffix = ".qc"
	tempPrefix  = "put-"

	// tempMaxAge is how long an orphaned temp file (left behind by a crash
	// between CreateTemp and Rename) may linger before the cleanup sweep
	// removes it
	tempMaxAge = time.Hour
)

func init() {
	// Concrete types that appear inside the any-typed row values
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register([]byte(nil))
	gob.Register(time.Time{})
}

// Key derives the cache key for a fully interpolated SQL statement
func Key(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return hex.EncodeToString(sum[:])
}

// entry is the on-disk payload
type entry struct {
	Columns   []string
	Rows      [][]any
	CreatedAt time.Time
	TTL       time.Duration
}

// Cache is a directory of TTL'd result files
type Cache struct {
	dir     string
	logger  *logging.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates a cache rooted at dir, creating the directory if needed
func New(dir string, logger *logging.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Cache{
		dir:     dir,
		logger:  logger,
		encoder: enc,
		decoder: dec,
	}, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+entrySuffix)
}

// Get looks up a cached result. The second return value reports a hit.
// Expired and corrupt entries are deleted and reported as misses.
func (c *Cache) Get(key string) ([]string, [][]any, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, false
	}

	e, err := c.decode(data)
	if err != nil {
		c.logger.Warn("Removing corrupt cache entry", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		_ = os.Remove(path)
		return nil, nil, false
	}

	if time.Now().After(e.CreatedAt.Add(e.TTL)) {
		_ = os.Remove(path)
		return nil, nil, false
	}

	return e.Columns, e.Rows, true
}

// Put stores a result set. The entry is written to a temp file and renamed
// so readers never observe a partial file.
func (c *Cache) Put(key string, columns []string, rows [][]any, ttl time.Duration) error {
	data, err := c.encode(&entry{
		Columns:   columns,
		Rows:      rows,
		CreatedAt: time.Now(),
		TTL:       ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}

	if err := os.Rename(tmpName, c.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}

	return nil
}

// Invalidate removes a single entry
func (c *Cache) Invalidate(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, de := range entries {
		if !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	return nil
}

// CleanupExpired removes all expired entries, returning the number removed
func (c *Cache) CleanupExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	now := time.Now()
	for _, de := range entries {
		if strings.HasPrefix(de.Name(), tempPrefix) {
			info, err := de.Info()
			if err == nil && now.Sub(info.ModTime()) > tempMaxAge {
				if os.Remove(filepath.Join(c.dir, de.Name())) == nil {
					removed++
				}
			}
			continue
		}
		if !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		path := filepath.Join(c.dir, de.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		e, err := c.decode(data)
		if err != nil || now.After(e.CreatedAt.Add(e.TTL)) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache entries", map[string]any{
			"removed": removed,
		})
	}
	return removed, nil
}

// Stats describes cache usage
type Stats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"sizeBytes"`
}

// GetStats returns entry count and total size on disk
func (c *Cache) GetStats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var stats Stats
	for _, de := range entries {
		if !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.SizeBytes += info.Size()
	}
	return stats, nil
}

func (c *Cache) encode(e *entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(buf.Bytes(), nil), nil
}

func (c *Cache) decode(data []byte) (*entry, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CacheCorrupt, "failed to decompress cache entry", err)
	}
	var e entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return nil, errors.Wrap(errors.CacheCorrupt, "failed to decode cache entry", err)
	}
	if e.Columns == nil {
		e.Columns = []string{}
	}
	return &e, nil
}
