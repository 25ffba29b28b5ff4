package cache

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fundvault/ragcore/internal/service"
)

// QueryCache caches a RetrievalResult keyed by (normalized query, filter).
// Thread-safe via sync.RWMutex. Entries auto-expire after TTL.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*queryCacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

type queryCacheEntry struct {
	result    *service.RetrievalResult
	createdAt time.Time
	expiresAt time.Time
}

// New creates a QueryCache with the given TTL and starts background cleanup.
func New(ttl time.Duration) *QueryCache {
	c := &QueryCache{
		entries: make(map[string]*queryCacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns a cached RetrievalResult if present and not expired.
func (c *QueryCache) Get(query string, filter service.RetrievalFilter) (*service.RetrievalResult, bool) {
	key := queryCacheKey(query, filter)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	slog.Debug("[QUERY-CACHE] hit", "key", key, "age_ms", time.Since(entry.createdAt).Milliseconds())
	return entry.result, true
}

// Set stores a RetrievalResult in the cache.
func (c *QueryCache) Set(query string, filter service.RetrievalFilter, result *service.RetrievalResult) {
	key := queryCacheKey(query, filter)
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &queryCacheEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()

	slog.Debug("[QUERY-CACHE] set", "key", key, "ttl_s", int(c.ttl.Seconds()))
}

// Invalidate removes every cached entry. Nothing in this module calls it
// when the index changes; entries otherwise live until their TTL expires.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	count := len(c.entries)
	c.entries = make(map[string]*queryCacheEntry)
	c.mu.Unlock()

	if count > 0 {
		slog.Info("[QUERY-CACHE] invalidated", "entries_removed", count)
	}
}

// Len returns the number of entries in the cache.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the background cleanup goroutine.
func (c *QueryCache) Stop() {
	close(c.stopCh)
}

// cleanup removes expired entries every 5 minutes.
func (c *QueryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			before := len(c.entries)
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			after := len(c.entries)
			c.mu.Unlock()
			if before != after {
				slog.Info("[QUERY-CACHE] cleanup", "removed", before-after, "remaining", after)
			}
		case <-c.stopCh:
			return
		}
	}
}

// queryCacheKey builds a deterministic key from the normalized query and
// the filter that scoped retrieval, so two different filters never share a
// cached result for the same query text.
func queryCacheKey(query string, filter service.RetrievalFilter) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	h := sha256.Sum256([]byte(normalized + "\x00" + filter.CacheKey()))
	return fmt.Sprintf("qc:%x", h[:12])
}
