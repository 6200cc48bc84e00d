package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/seo-linker/internal/metrics"
)

// RateLimited throttles calls to the wrapped provider with a token bucket.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that it is called at most rps times per second
// with bursts of up to burst calls. A non-positive rps returns p unchanged.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Name reports the wrapped provider's name.
func (r *RateLimited) Name() string {
	return r.next.Name()
}

// Complete waits for a token, then delegates.
func (r *RateLimited) Complete(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveLLMRateLimitDelay(r.next.Name(), waited)
	}
	return r.next.Complete(ctx, p)
}
