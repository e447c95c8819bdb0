package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumina/internal/shared/logger"
)

// fakeClock advances manually so threshold crossings are deterministic.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestMonitor_Check_UnderThreshold(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	m := NewMonitorAt(60*time.Second, logger.NewLogger(), clock.now)

	clock.advance(20 * time.Second)

	assert.False(t, m.Check("verify receipt"))
}

func TestMonitor_Check_ApproachingBudget(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	m := NewMonitorAt(60*time.Second, logger.NewLogger(), clock.now)

	clock.advance(55 * time.Second)

	assert.True(t, m.Check("persist subscription"))
}

func TestMonitor_Check_TinyBudgetFallsBackToHalf(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	m := NewMonitorAt(4*time.Second, logger.NewLogger(), clock.now)

	clock.advance(1 * time.Second)
	assert.False(t, m.Check("fast op"))

	clock.advance(2 * time.Second)
	assert.True(t, m.Check("slow op"))
}

func TestMonitor_Elapsed(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	m := NewMonitorAt(time.Minute, logger.NewLogger(), clock.now)

	clock.advance(42 * time.Second)

	assert.Equal(t, 42*time.Second, m.Elapsed())
}
