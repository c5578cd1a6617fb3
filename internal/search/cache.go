package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache persists raw hits between runs.
type Cache interface {
	GetCachedSearch(ctx context.Context, key string) ([]byte, bool, error)
	SetCachedSearch(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Cached serves repeated queries from a Cache. Cache failures are logged
// and never fail the search.
type Cached struct {
	Provider
	cache Cache
	ttl   time.Duration
}

// WithCache wraps p with a cache. A nil cache or zero ttl returns p.
func WithCache(p Provider, c Cache, ttl time.Duration) Provider {
	if c == nil || ttl <= 0 {
		return p
	}
	return &Cached{Provider: p, cache: c, ttl: ttl}
}

// Search implements Provider.
func (c *Cached) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.Fresh {
		return c.Provider.Search(ctx, q)
	}
	key := CacheKey(c.Name(), q)
	log := zap.L().With(zap.String("provider", c.Name()), zap.String("query", q.Text))

	if payload, ok, err := c.cache.GetCachedSearch(ctx, key); err != nil {
		log.Warn("search: cache read failed", zap.Error(err))
	} else if ok {
		var hits []Hit
		if err := json.Unmarshal(payload, &hits); err == nil {
			log.Debug("search: cache hit")
			return hits, nil
		}
	}

	hits, err := c.Provider.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	// Empty answers are not cached so a transient gap is retried next run.
	if len(hits) > 0 {
		payload, _ := json.Marshal(hits)
		if err := c.cache.SetCachedSearch(ctx, key, payload, c.ttl); err != nil {
			log.Warn("search: cache write failed", zap.Error(err))
		}
	}
	return hits, nil
}

// CacheKey identifies a query for one provider.
func CacheKey(provider string, q Query) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(q.Text))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(q.IncludeDomains, ",")))
	h.Write([]byte{0})
	h.Write([]byte{byte(q.NumResults)})
	return hex.EncodeToString(h.Sum(nil))
}
