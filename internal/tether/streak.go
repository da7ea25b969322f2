package tether

import (
	"sync"
	"time"
)

// StreakState describes a vendor's health as seen by selection.
type StreakState int

const (
	StateHealthy StreakState = iota
	StateFailing
)

func (s StreakState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateFailing:
		return "FAILING"
	default:
		return "UNKNOWN"
	}
}

// FailureStreak counts consecutive failed observations of one vendor.
// Any success resets it.
type FailureStreak struct {
	threshold       int
	failures        int
	lastFailureTime time.Time
	lastSuccessTime time.Time
	mutex           sync.RWMutex
}

func NewFailureStreak(threshold int) *FailureStreak {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &FailureStreak{threshold: threshold}
}

// RecordFailure increments the streak and returns the new count.
func (fs *FailureStreak) RecordFailure(at time.Time) int {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.failures++
	fs.lastFailureTime = at
	return fs.failures
}

func (fs *FailureStreak) RecordSuccess(at time.Time) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.failures = 0
	fs.lastSuccessTime = at
}

func (fs *FailureStreak) Failures() int {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	return fs.failures
}

// State is FAILING once the streak reaches the threshold.
func (fs *FailureStreak) State() StreakState {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	if fs.failures >= fs.threshold {
		return StateFailing
	}
	return StateHealthy
}
