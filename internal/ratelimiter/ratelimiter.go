// Package ratelimiter implements the per-campaign sliding-window counter
// from spec.md §4.2. The production backend is Redis, grounded on
// jordanlanch-industrydb-back/backend/pkg/cache/redis.go's client
// wiring and original_source/app/core/rate_limiter.py's sliding-window
// design (itself a Redis-backed counter with a 2-second TTL safety
// margin); an in-memory backend of the same shape is provided for
// tests and single-process deployments.
package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Decision is the result of a TryAcquire call.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// RateLimiter is the capability the orchestrator depends on for stage 3
// of the compliance pipeline.
type RateLimiter interface {
	// TryAcquire evicts admissions older than now-1s for campaignID,
	// then admits and records now if the remaining count is below
	// limitPerSecond. The check-and-insert is atomic per key.
	TryAcquire(ctx context.Context, campaignID int, limitPerSecond int, now time.Time) (Decision, error)
	// Status reports the current window occupancy for monitoring,
	// grounded on rate_limiter.py's get_rate_limit_status.
	Status(ctx context.Context, campaignID int, limitPerSecond int) (current int, err error)
}

func key(campaignID int) string {
	return fmt.Sprintf("campaign:%d:rate_limit", campaignID)
}
