// Package cache implements the file-backed response cache: one JSON file
// per entry, keyed by MD5 of the normalized question and format.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nitk-assistant/query-engine/internal/model"
)

// ResponseCache is a file-per-entry cache guarded by a single mutex for its
// periodic size maintenance, matching the source system's locking model.
type ResponseCache struct {
	dir             string
	ttl             time.Duration
	maxSizeBytes    int64
	cleanupInterval time.Duration

	mu          sync.Mutex
	lastCleanup time.Time
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithTTL overrides the default 7-day TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) { c.ttl = ttl }
}

// WithMaxSizeBytes overrides the default 1 GB size ceiling.
func WithMaxSizeBytes(n int64) Option {
	return func(c *ResponseCache) { c.maxSizeBytes = n }
}

// WithCleanupInterval overrides the default 24-hour cleanup gate.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *ResponseCache) { c.cleanupInterval = d }
}

// New returns a ResponseCache rooted at dir, creating it if necessary.
func New(dir string, opts ...Option) (*ResponseCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache.New: %w", err)
	}

	c := &ResponseCache{
		dir:             dir,
		ttl:             7 * 24 * time.Hour,
		maxSizeBytes:    1 << 30,
		cleanupInterval: 24 * time.Hour,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Key returns the MD5 hex digest of normalizedQuestion + "_" + format.
func Key(normalizedQuestion string, format model.Format) string {
	sum := md5.Sum([]byte(normalizedQuestion + "_" + string(format)))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached response for key if the file exists and its age
// is within TTL. A miss (file absent, unreadable, or expired) returns
// ok=false and never an error the caller must handle specially.
func (c *ResponseCache) Get(key string) (model.CachedResponse, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return model.CachedResponse{}, false
	}

	var entry model.CachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("cache.Get: corrupt entry, treating as miss", "key", key, "error", err)
		return model.CachedResponse{}, false
	}

	if time.Since(entry.Timestamp) > c.ttl {
		return model.CachedResponse{}, false
	}
	return entry, true
}

// Put writes value under key using a write-then-rename for per-key
// atomicity, then triggers the rate-limited size maintenance pass.
func (c *ResponseCache) Put(key string, value model.CachedResponse) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}

	final := c.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}

	c.maybeCleanup()
	return nil
}

// maybeCleanup runs at most once per cleanup interval: it removes expired
// entries, then evicts oldest-by-mtime entries until total size is under
// the configured ceiling.
func (c *ResponseCache) maybeCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastCleanup) < c.cleanupInterval {
		return
	}
	c.lastCleanup = time.Now()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Warn("cache.maybeCleanup: failed to list cache dir", "error", err)
		return
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(entries))
	var total int64

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(c.dir, e.Name())

		if c.isExpiredFile(p) {
			os.Remove(p)
			continue
		}

		files = append(files, fileInfo{path: p, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	if total <= c.maxSizeBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for _, f := range files {
		if total <= c.maxSizeBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			continue
		}
		total -= f.size
	}
}

func (c *ResponseCache) isExpiredFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var entry model.CachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return true
	}
	return time.Since(entry.Timestamp) > c.ttl
}

// Stats reports the number of entries and their total size on disk.
type Stats struct {
	Entries   int
	TotalSize int64
}

// Stats reads the cache directory and returns a snapshot count/size.
func (c *ResponseCache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, fmt.Errorf("cache.Stats: %w", err)
	}
	var stats Stats
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}

// Clear removes every entry in the cache directory.
func (c *ResponseCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("cache.Clear: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		os.Remove(filepath.Join(c.dir, e.Name()))
	}
	return nil
}
