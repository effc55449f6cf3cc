package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process RateLimiter with the same sliding-window
// semantics as Redis, for tests and single-process deployments.
type Memory struct {
	mu      sync.Mutex
	windows map[int][]time.Time
}

// NewMemory constructs an in-memory RateLimiter.
func NewMemory() *Memory {
	return &Memory{windows: make(map[int][]time.Time)}
}

func (m *Memory) TryAcquire(ctx context.Context, campaignID int, limitPerSecond int, now time.Time) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-time.Second)
	entries := m.windows[campaignID]
	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) < limitPerSecond {
		kept = append(kept, now)
		m.windows[campaignID] = kept
		return Decision{Admitted: true}, nil
	}

	m.windows[campaignID] = kept
	oldest := kept[0]
	for _, t := range kept {
		if t.Before(oldest) {
			oldest = t
		}
	}
	retryAfter := oldest.Add(time.Second).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Admitted: false, RetryAfter: retryAfter}, nil
}

func (m *Memory) Status(ctx context.Context, campaignID int, limitPerSecond int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-time.Second)
	entries := m.windows[campaignID]
	count := 0
	for _, t := range entries {
		if t.After(cutoff) {
			count++
		}
	}
	return count, nil
}
