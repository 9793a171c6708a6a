package quota_test

import (
	"testing"
	"time"

	"github.com/snapstyle/snapstyle-backend/pkg/quota"
	"github.com/stretchr/testify/assert"
)

func TestTracker_CanCallUntilLimit(t *testing.T) {
	tracker := quota.NewTracker(3, nil, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, tracker.CanCall(), "call %d should be allowed", i+1)
		tracker.RecordCall()
	}

	assert.False(t, tracker.CanCall())
	assert.Equal(t, 0, tracker.Remaining())
}

func TestTracker_RecordCallIsUnconditional(t *testing.T) {
	tracker := quota.NewTracker(1, nil, nil)

	tracker.RecordCall()
	tracker.RecordCall()

	stats := tracker.Stats()
	assert.Equal(t, 2, stats.CallsUsedToday)
	assert.Equal(t, 0, stats.Remaining, "remaining is clamped at zero")
}

func TestTracker_DayBoundaryResetsCounter(t *testing.T) {
	current := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	tracker := quota.NewTracker(2, nil, &quota.TrackerOpts{
		TimeProvider: func() time.Time { return current },
	})

	tracker.RecordCall()
	tracker.RecordCall()
	assert.False(t, tracker.CanCall())

	current = current.Add(15 * time.Minute) // crosses midnight

	assert.True(t, tracker.CanCall())
	stats := tracker.Stats()
	assert.Equal(t, 0, stats.CallsUsedToday)
	assert.Equal(t, 2, stats.Remaining)
}

func TestTracker_Stats(t *testing.T) {
	tracker := quota.NewTracker(10, nil, nil)
	tracker.RecordCall()
	tracker.RecordCall()
	tracker.RecordCall()

	stats := tracker.Stats()
	assert.Equal(t, 3, stats.CallsUsedToday)
	assert.Equal(t, 10, stats.DailyLimit)
	assert.Equal(t, 7, stats.Remaining)
}

func TestTracker_DefaultLimitForNonPositive(t *testing.T) {
	tracker := quota.NewTracker(0, nil, nil)
	assert.Equal(t, quota.DefaultDailyLimit, tracker.Stats().DailyLimit)
}
