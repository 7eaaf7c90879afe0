package sim

import (
	"sync"

	"github.com/me/ossim/pkg/model"
)

// Clock is the simulator's tick source. Now is monotonically
// non-decreasing and safe to read from any goroutine; the simulator's
// driver goroutine advances it on a fixed wall-clock cadence and every
// simulated component paces itself with WaitTick.
type Clock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     model.Tick
	stopped bool
}

// NewClock creates a clock at tick zero.
func NewClock() *Clock {
	c := &Clock{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Now returns the current tick.
func (c *Clock) Now() model.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward one tick and wakes every waiter.
func (c *Clock) Advance() {
	c.mu.Lock()
	c.now++
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Stop wakes every waiter and makes all further WaitTick calls return
// immediately with ok=false.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// WaitTick blocks until the clock advances past the tick observed at
// entry, returning the new tick. ok is false once the clock is stopped.
func (c *Clock) WaitTick() (now model.Tick, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entered := c.now
	for c.now == entered && !c.stopped {
		c.cond.Wait()
	}
	return c.now, !c.stopped
}
