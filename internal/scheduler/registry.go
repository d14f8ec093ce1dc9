package scheduler

import "sync"

var (
	active   Scheduler
	activeMu sync.RWMutex
)

// SetActiveScheduler records the scheduler that sweeps submit to.
// A nil scheduler turns submission off and sweeps only write scripts.
func SetActiveScheduler(s Scheduler) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = s
}

// ActiveScheduler returns the scheduler set at startup, or nil for a dry run
func ActiveScheduler() Scheduler {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// ClearActiveScheduler turns submission off
func ClearActiveScheduler() {
	SetActiveScheduler(nil)
}
