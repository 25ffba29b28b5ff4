package cache

import (
	"context"

	"github.com/fundvault/ragcore/internal/service"
)

// CachingRetriever decorates a RetrieverService with the QueryCache so
// repeat queries against an unchanged index skip the vector/lexical search
// and fusion work entirely (§9 query caching).
type CachingRetriever struct {
	inner *service.RetrieverService
	cache *QueryCache
}

// NewCachingRetriever wraps inner with cache.
func NewCachingRetriever(inner *service.RetrieverService, cache *QueryCache) *CachingRetriever {
	return &CachingRetriever{inner: inner, cache: cache}
}

// Configure forwards to the wrapped RetrieverService.
func (c *CachingRetriever) Configure(weightVector, weightLexical, minQuality, diversity float64) {
	c.inner.Configure(weightVector, weightLexical, minQuality, diversity)
}

// Retrieve serves from cache on a hit; on a miss it retrieves, then caches
// the result for subsequent identical (query, filter) pairs. Diagnostic
// results (e.g. no_index) are cached too, for the same TTL as any other
// result.
func (c *CachingRetriever) Retrieve(ctx context.Context, query string, strategy service.Strategy, filter service.RetrievalFilter, kFinal int) (*service.RetrievalResult, error) {
	if cached, ok := c.cache.Get(query, filter); ok {
		return cached, nil
	}

	result, err := c.inner.Retrieve(ctx, query, strategy, filter, kFinal)
	if err != nil {
		return nil, err
	}

	c.cache.Set(query, filter, result)
	return result, nil
}
