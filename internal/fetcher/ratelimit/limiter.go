// Package ratelimit paces page fetches with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/tender-crawler/internal/metrics"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// Config holds rate limiter configuration. RPS <= 0 disables pacing.
type Config struct {
	RPS   float64
	Burst int
}

// Fetcher delays each Fetch of the wrapped PageFetcher until a token is
// available.
type Fetcher struct {
	next    tender.PageFetcher
	limiter *rate.Limiter
}

// Wrap returns next paced by cfg. With pacing disabled next is returned as is.
func Wrap(next tender.PageFetcher, cfg Config) tender.PageFetcher {
	if cfg.RPS <= 0 {
		return next
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Fetcher{next: next, limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst)}
}

// Fetch waits for a token, then fetches. A wait cut short by ctx is reported
// as a network soft failure.
func (f *Fetcher) Fetch(ctx context.Context, page tender.PageIndex) tender.PageOutcome {
	start := time.Now()
	if err := f.limiter.Wait(ctx); err != nil {
		return tender.SoftFailure(page, tender.FailureNetwork, 0, fmt.Sprintf("rate limit wait: %v", err))
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return f.next.Fetch(ctx, page)
}
