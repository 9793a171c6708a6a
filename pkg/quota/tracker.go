package quota

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDailyLimit is a conservative daily budget for the metered
// shopping-search provider. Sized for a small plan; raise via config.
const DefaultDailyLimit = 50

// Tracker counts calls to the external shopping-search provider against a
// daily budget. State is process-local and resets on restart. CanCall and
// RecordCall are deliberately separate: a concurrent check-then-record may
// overshoot the budget by one, which is accepted looseness rather than a
// reason for heavier locking.
type Tracker struct {
	mu         sync.Mutex
	callsToday int
	lastReset  time.Time
	dailyLimit int

	logger *logrus.Logger
	now    func() time.Time
}

// Snapshot is the monitoring read exposed for operational visibility.
type Snapshot struct {
	CallsUsedToday int `json:"calls_used_today"`
	DailyLimit     int `json:"daily_limit"`
	Remaining      int `json:"remaining"`
}

type TrackerOpts struct {
	TimeProvider func() time.Time
}

func NewTracker(dailyLimit int, logger *logrus.Logger, opts *TrackerOpts) *Tracker {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	now := time.Now
	if opts != nil && opts.TimeProvider != nil {
		now = opts.TimeProvider
	}
	return &Tracker{
		dailyLimit: dailyLimit,
		lastReset:  now(),
		logger:     logger,
		now:        now,
	}
}

// maybeReset zeroes the counter when the wall-clock day has changed.
// Callers must hold t.mu.
func (t *Tracker) maybeReset() {
	now := t.now()
	ny, nm, nd := now.Date()
	ly, lm, ld := t.lastReset.Date()
	if ny == ly && nm == lm && nd == ld {
		return
	}
	if t.logger != nil {
		t.logger.WithFields(logrus.Fields{
			"calls_used": t.callsToday,
			"new_day":    now.Format("2006-01-02"),
		}).Info("daily provider budget reset")
	}
	t.callsToday = 0
	t.lastReset = now
}

// CanCall reports whether the budget still has room today. Callers must
// honor a false result; this tracker never blocks a call itself.
func (t *Tracker) CanCall() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	return t.callsToday < t.dailyLimit
}

// RecordCall increments the counter unconditionally.
func (t *Tracker) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	t.callsToday++
	if t.logger != nil {
		t.logger.WithFields(logrus.Fields{
			"calls_used":  t.callsToday,
			"daily_limit": t.dailyLimit,
		}).Debug("provider call recorded")
	}
}

// Remaining returns how many calls are left today, never below zero.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	remaining := t.dailyLimit - t.callsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stats returns the current usage snapshot.
func (t *Tracker) Stats() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeReset()
	remaining := t.dailyLimit - t.callsToday
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		CallsUsedToday: t.callsToday,
		DailyLimit:     t.dailyLimit,
		Remaining:      remaining,
	}
}
