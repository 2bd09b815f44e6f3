package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Reads are safe while
// another goroutine advances it.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// AdvanceToNextDay moves the clock to midnight of the following UTC day,
// crossing the boundary daily issuance quotas are keyed on.
func (c *FakeClock) AdvanceToNextDay() {
	c.mu.Lock()
	y, m, d := c.now.Date()
	c.now = time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	c.mu.Unlock()
}
