// Package cache provides caching for the RAG pipeline: a two-tier
// process-local/shared cache for embedding vectors, and a short-lived
// result cache for retrieval responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// EmbeddingCache is a two-tier cache for embedding vectors (§4.2, §5): an
// in-process LRU bounded by entry count backed by a shared Redis tier so
// multiple server processes see each other's cache fills. The Redis tier is
// optional — a nil client degrades to L1-only.
type EmbeddingCache struct {
	l1  *lru.Cache[string, []float32]
	l2  *redis.Client
	ttl time.Duration
}

// NewEmbeddingCache creates a two-tier embedding cache. maxEntries bounds
// the L1 LRU; ttl governs how long an entry survives in the shared L2 tier.
func NewEmbeddingCache(maxEntries int, l2 *redis.Client, ttl time.Duration) (*EmbeddingCache, error) {
	l1, err := lru.New[string, []float32](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache.NewEmbeddingCache: %w", err)
	}
	return &EmbeddingCache{l1: l1, l2: l2, ttl: ttl}, nil
}

// Get looks up an embedding by (text, model). It checks L1 first, then L2,
// promoting an L2 hit back into L1.
func (c *EmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	key := EmbeddingCacheKey(text, model)

	if vec, ok := c.l1.Get(key); ok {
		slog.Debug("[EMBED-CACHE] l1 hit", "key", key)
		return vec, true
	}

	if c.l2 == nil {
		return nil, false
	}

	raw, err := c.l2.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("[EMBED-CACHE] l2 get error", "error", err)
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		slog.Warn("[EMBED-CACHE] l2 decode error", "error", err)
		return nil, false
	}

	c.l1.Add(key, vec)
	slog.Debug("[EMBED-CACHE] l2 hit", "key", key)
	return vec, true
}

// Set stores an embedding in both tiers.
func (c *EmbeddingCache) Set(ctx context.Context, text, model string, vec []float32) {
	key := EmbeddingCacheKey(text, model)
	c.l1.Add(key, vec)

	if c.l2 == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		slog.Warn("[EMBED-CACHE] l2 encode error", "error", err)
		return
	}
	if err := c.l2.Set(ctx, redisKey(key), raw, c.ttl).Err(); err != nil {
		slog.Warn("[EMBED-CACHE] l2 set error", "error", err)
	}
}

// Len returns the number of entries in the L1 tier.
func (c *EmbeddingCache) Len() int {
	return c.l1.Len()
}

func redisKey(key string) string {
	return "ragcore:emb:" + key
}

// EmbeddingCacheKey returns a deterministic cache key for a (text, model)
// pair, hashing the normalized text alongside the model identifier so a
// model change never serves a stale vector (§9 design note).
func EmbeddingCacheKey(text, model string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	h := sha256.Sum256([]byte(normalized + "\x00" + model))
	return fmt.Sprintf("%x", h[:16])
}
