package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CacheEntry is one loaded series.
type CacheEntry struct {
	Values    []float64
	ExpiresAt time.Time
}

// ProfileCache keeps loaded series in memory so assets that share a profile file
// read it once. Entries are keyed by path, size and modification time, so an edited
// file is reloaded. A nil cache is valid and never hits.
type ProfileCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
}

// NewProfileCache returns a cache whose entries live for ttl (0 = one hour).
func NewProfileCache(ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProfileCache{store: make(map[string]*CacheEntry), ttl: ttl}
}

// Get retrieves a copy of a cached series if present and not expired.
func (c *ProfileCache) Get(key string) ([]float64, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return append([]float64(nil), entry.Values...), true
}

// Set stores a copy of values and drops expired entries.
func (c *ProfileCache) Set(key string, values []float64) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.store {
		if now.After(e.ExpiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = &CacheEntry{
		Values:    append([]float64(nil), values...),
		ExpiresAt: now.Add(c.ttl),
	}
}

func (c *ProfileCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Load returns the series at path, reading the file only on a cache miss.
func (c *ProfileCache) Load(path string) ([]float64, error) {
	key, err := CacheKey(path)
	if err != nil {
		return nil, err
	}
	if values, ok := c.Get(key); ok {
		return values, nil
	}
	values, err := LoadSeries(path)
	if err != nil {
		return nil, err
	}
	c.Set(key, values)
	return values, nil
}

// CacheKey identifies a file revision.
func CacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	keyStr := fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano())

	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:]), nil
}
