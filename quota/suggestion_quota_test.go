package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redgen/config"
)

func TestUnlimited(t *testing.T) {
	l := NewSuggestionQuotaLimiter(config.SuggestionQuotaConfig{})
	for i := 0; i < 100; i++ {
		require.NoError(t, l.WaitAndReserve(context.Background()))
	}
	assert.Equal(t, -1, l.Remaining())
}

func TestDailyLimitResetsNextDay(t *testing.T) {
	clock := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	l := NewSuggestionQuotaLimiter(config.SuggestionQuotaConfig{RequestsPerDay: 2})
	l.now = func() time.Time { return clock }

	require.NoError(t, l.WaitAndReserve(context.Background()))
	require.NoError(t, l.WaitAndReserve(context.Background()))
	assert.Equal(t, 0, l.Remaining())
	assert.ErrorIs(t, l.WaitAndReserve(context.Background()), ErrDailyQuotaExceeded)

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 2, l.Remaining())
	require.NoError(t, l.WaitAndReserve(context.Background()))
}

func TestPerMinutePacingHonoursContext(t *testing.T) {
	l := NewSuggestionQuotaLimiter(config.SuggestionQuotaConfig{RequestsPerMinute: 1})
	require.NoError(t, l.WaitAndReserve(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitAndReserve(ctx), context.DeadlineExceeded)
}

func TestPerMinutePacingSpacesCalls(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewSuggestionQuotaLimiter(config.SuggestionQuotaConfig{RequestsPerMinute: 60, RequestsPerDay: 3})
	l.now = func() time.Time { return clock }

	wait, err := l.tryReserve()
	require.NoError(t, err)
	assert.Zero(t, wait)

	clock = clock.Add(400 * time.Millisecond)
	wait, err = l.tryReserve()
	require.NoError(t, err)
	assert.Equal(t, 600*time.Millisecond, wait)
	assert.Equal(t, 2, l.Remaining())

	clock = clock.Add(wait)
	wait, err = l.tryReserve()
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.Equal(t, 1, l.Remaining())
}
