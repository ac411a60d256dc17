package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntervalScheduleRejectsSubSecond(t *testing.T) {
	_, err := NewIntervalSchedule(500 * time.Millisecond)
	require.Error(t, err)
}

func TestIntervalScheduleAdvancesByDuration(t *testing.T) {
	sched, err := NewIntervalSchedule(time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := sched.Next(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), next)
}

func TestCronScheduleParsesAndAdvances(t *testing.T) {
	sched, err := NewCronSchedule("0 0 * * *", "")
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	next, ok := sched.Next(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), next)
}

func TestCronScheduleRejectsInvalidExpression(t *testing.T) {
	_, err := NewCronSchedule("not a cron expression", "")
	require.Error(t, err)
}

func TestCronScheduleRejectsUnknownTimezone(t *testing.T) {
	_, err := NewCronSchedule("0 0 * * *", "Nowhere/Fake")
	require.Error(t, err)
}

func TestImmediateScheduleFiresOnceThenStops(t *testing.T) {
	sched := NewImmediateSchedule()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, ok := sched.Next(now)
	require.True(t, ok)
	assert.Equal(t, now, first)

	_, ok = sched.Next(now)
	assert.False(t, ok)
}

func TestOnDemandScheduleNeverFires(t *testing.T) {
	sched := NewOnDemandSchedule()
	_, ok := sched.Next(time.Now())
	assert.False(t, ok)
}
