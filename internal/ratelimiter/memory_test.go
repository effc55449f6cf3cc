package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/ratelimiter"
)

func TestMemory_AdmitsUpToLimit(t *testing.T) {
	rl := ratelimiter.NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		decision, err := rl.TryAcquire(context.Background(), 1, 3, now)
		require.NoError(t, err)
		assert.True(t, decision.Admitted, "admission %d should be allowed", i)
	}

	decision, err := rl.TryAcquire(context.Background(), 1, 3, now)
	require.NoError(t, err)
	assert.False(t, decision.Admitted)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestMemory_WindowSlidesAfterOneSecond(t *testing.T) {
	rl := ratelimiter.NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		decision, err := rl.TryAcquire(context.Background(), 1, 2, now)
		require.NoError(t, err)
		require.True(t, decision.Admitted)
	}

	decision, err := rl.TryAcquire(context.Background(), 1, 2, now.Add(1100*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, decision.Admitted)
}

func TestMemory_SeparateCampaignsIsolated(t *testing.T) {
	rl := ratelimiter.NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	decision, err := rl.TryAcquire(context.Background(), 1, 1, now)
	require.NoError(t, err)
	assert.True(t, decision.Admitted)

	decision, err = rl.TryAcquire(context.Background(), 2, 1, now)
	require.NoError(t, err)
	assert.True(t, decision.Admitted, "a different campaign should have its own window")
}

func TestMemory_Status(t *testing.T) {
	rl := ratelimiter.NewMemory()
	now := time.Now()
	_, err := rl.TryAcquire(context.Background(), 1, 5, now)
	require.NoError(t, err)

	count, err := rl.Status(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
