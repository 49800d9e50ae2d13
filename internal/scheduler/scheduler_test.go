package scheduler

import (
	"BunOfTheDayBot/internal/config"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, intn func(int) int) *Service {
	t.Helper()
	cfg := config.ScheduleConfig{
		Timezone:         "UTC",
		MorningHour:      9,
		EveningStartHour: 18,
		EveningEndHour:   22,
	}
	s, err := New(slog.Default(), cfg, nil)
	require.NoError(t, err)
	s.intn = intn
	return s
}

func TestNextEveningTimeInsideWindow(t *testing.T) {
	s := newTestService(t, func(n int) int { return n - 1 })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := s.nextEveningTime(now)

	assert.Equal(t, now.Day(), at.Day())
	assert.Equal(t, 21, at.Hour())
	assert.Equal(t, 59, at.Minute())
}

func TestNextEveningTimeEarliestSlot(t *testing.T) {
	s := newTestService(t, func(n int) int { return 0 })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := s.nextEveningTime(now)

	assert.Equal(t, 18, at.Hour())
	assert.Equal(t, 0, at.Minute())
}

func TestNextEveningTimeRollsToTomorrow(t *testing.T) {
	s := newTestService(t, func(n int) int { return 0 })

	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	at := s.nextEveningTime(now)

	assert.Equal(t, 2, at.Day())
	assert.Equal(t, 18, at.Hour())
	assert.True(t, at.After(now))
}

func TestRescheduleEveningReplacesJob(t *testing.T) {
	s := newTestService(t, func(n int) int { return n - 1 })
	s.scheduler.Start()
	defer s.scheduler.Shutdown()

	first, err := s.RescheduleEvening()
	require.NoError(t, err)
	firstAt, ok := s.NextEveningFire()
	require.True(t, ok)
	assert.WithinDuration(t, first, firstAt, time.Second)

	s.intn = func(n int) int { return 0 }
	second, err := s.RescheduleEvening()
	require.NoError(t, err)

	secondAt, ok := s.NextEveningFire()
	require.True(t, ok, "exactly one evening job remains registered")
	assert.WithinDuration(t, second, secondAt, time.Second)
	assert.NotEqual(t, first, second)
}
