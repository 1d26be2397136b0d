package honk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_DailyBudget(t *testing.T) {
	t.Parallel()

	// High per-minute rate so only the daily budget constrains the test.
	r := NewRateLimiter(6000, 10, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}
	assert.Equal(t, int64(0), r.Remaining())

	err := r.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 8, 0, 0, 0, time.UTC)
	r := NewRateLimiter(6000, 10, 1, WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	require.ErrorIs(t, r.Wait(ctx), ErrBudgetExhausted)

	// Advance past the 24-hour window; the budget comes back.
	now = now.Add(25 * time.Hour)
	assert.Equal(t, int64(1), r.Remaining())
	require.NoError(t, r.Wait(ctx))
}

func TestRateLimiter_ContextCanceled(t *testing.T) {
	t.Parallel()

	// One token per hour with the burst already spent forces a wait.
	r := NewRateLimiter(1.0/60.0, 1, 100)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBudgetExhausted)
}
