package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the retry delay for the k-th transient-failure retry:
// min(60*2^(k-1), 3600) seconds, with +/-20% jitter (spec.md §4.7).
func Backoff(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	base := math.Min(60*math.Pow(2, float64(k-1)), 3600)
	jitter := base * 0.2 * (2*rand.Float64() - 1)
	seconds := base + jitter
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}
