// Package budget provides a soft execution-time budget monitor. It flags
// operations that run close to the platform's hard invocation timeout but
// never aborts them; the point is attribution in the logs, not enforcement.
package budget

import (
	"time"

	"lumina/internal/shared/logger"
)

// warningMargin is how long before the deadline Check starts warning.
const warningMargin = 10 * time.Second

// Monitor tracks elapsed time against a soft budget for a single invocation.
type Monitor struct {
	budget  time.Duration
	started time.Time
	now     func() time.Time
	logger  logger.Interface
}

// NewMonitor creates a monitor for an invocation with the given budget.
// Call Check before each expensive operation.
func NewMonitor(budget time.Duration, log logger.Interface) *Monitor {
	return &Monitor{
		budget:  budget,
		started: time.Now(),
		now:     time.Now,
		logger:  log,
	}
}

// NewMonitorAt is like NewMonitor but with an injectable clock for tests.
func NewMonitorAt(budget time.Duration, log logger.Interface, now func() time.Time) *Monitor {
	return &Monitor{
		budget:  budget,
		started: now(),
		now:     now,
		logger:  log,
	}
}

// Check logs a warning when the invocation is approaching its budget.
// Returns true when the budget is nearly exhausted so callers can skip
// optional work; required work should proceed regardless.
func (m *Monitor) Check(operation string) bool {
	elapsed := m.now().Sub(m.started)
	threshold := m.budget - warningMargin
	if threshold < 0 {
		threshold = m.budget / 2
	}

	if elapsed < threshold {
		return false
	}

	remaining := m.budget - elapsed
	m.logger.Warnw("invocation approaching time budget",
		"operation", operation,
		"elapsed", elapsed.Round(100*time.Millisecond).String(),
		"budget", m.budget.String(),
		"remaining", remaining.Round(100*time.Millisecond).String(),
	)
	return true
}

// Elapsed reports how long the invocation has been running.
func (m *Monitor) Elapsed() time.Duration {
	return m.now().Sub(m.started)
}
