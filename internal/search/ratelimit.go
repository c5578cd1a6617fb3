package search

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// RateLimited throttles a provider to a shared request rate.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p with a token bucket of perSecond and burst. A
// non-positive rate returns p unchanged.
func WithRateLimit(p Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{Provider: p, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Search waits for a token before delegating.
func (r *RateLimited) Search(ctx context.Context, q Query) ([]Hit, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}
	return r.Provider.Search(ctx, q)
}
