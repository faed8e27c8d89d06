package chess

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const DefaultInitialTime = time.Hour

// Clock is a pair of countdowns of which at most one runs. It is safe for
// concurrent use: Run decrements it from its own goroutine while the match
// switches sides.
//
// While Run drives the clock, the running side is charged the wall time it
// actually used, so a move made between two ticks keeps its sub-tick
// remainder. Without Run only Tick takes time off.
type Clock struct {
	mu        sync.Mutex
	remaining [2]time.Duration
	active    Color
	running   bool
	expired   bool
	onExpire  func(Color)

	live  bool
	since time.Time
	now   func() time.Time
}

// NewClock returns a stopped clock with initial time on both sides.
func NewClock(initial time.Duration) *Clock {
	c := &Clock{now: time.Now}
	c.Reset(initial)
	return c
}

// OnExpire registers the function told, once, which color ran out of time. It
// is called without the clock's lock held.
func (c *Clock) OnExpire(fn func(Color)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Reset stops the clock and gives both sides d.
func (c *Clock) Reset(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = [2]time.Duration{d, d}
	c.active = White
	c.running = false
	c.expired = false
	c.since = c.now()
}

// Set overwrites the remaining time of one side.
func (c *Clock) Set(col Color, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining[col] = d
}

// elapsed returns the wall time the running side has used since it was last
// charged. Callers hold mu.
func (c *Clock) elapsed() time.Duration {
	now := c.now()
	d := now.Sub(c.since)
	c.since = now
	if !c.live || !c.running || c.expired || d < 0 {
		return 0
	}
	return d
}

// settle charges the running side without firing the expiry callback, which
// may need the lock of whoever is switching sides. A side left at zero
// expires on the first tick it is running again. Callers hold mu.
func (c *Clock) settle() {
	col := c.active
	c.remaining[col] -= c.elapsed()
	if c.remaining[col] < 0 {
		c.remaining[col] = 0
	}
}

// Start makes col the only running side. Stopping the other side and starting
// col happen under one lock.
func (c *Clock) Start(col Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return
	}
	c.settle()
	c.active = col
	c.running = true
}

// Stop halts whichever side is running. The active color is remembered.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()
	c.running = false
}

// Active returns the color the clock is, or was last, running for.
func (c *Clock) Active() Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Running reports whether a countdown is in progress.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Expired reports whether a side has run out of time since the last Reset.
func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Remaining returns the time left for col.
func (c *Clock) Remaining(col Color) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining[col]
}

// Seconds returns the time left for col rounded to the nearest second.
func (c *Clock) Seconds(col Color) int64 {
	return int64((c.Remaining(col) + time.Second/2) / time.Second)
}

// Tick takes d off the running side. When that side reaches zero the clock
// stops and the expiry callback fires.
func (c *Clock) Tick(d time.Duration) {
	c.mu.Lock()
	c.spend(d)
}

// advance charges the running side the wall time used since it was last
// charged.
func (c *Clock) advance() {
	c.mu.Lock()
	c.spend(c.elapsed())
}

// spend is entered with mu held and releases it before calling onExpire.
func (c *Clock) spend(d time.Duration) {
	if !c.running || c.expired {
		c.mu.Unlock()
		return
	}
	col := c.active
	c.remaining[col] -= d
	if c.remaining[col] > 0 {
		c.mu.Unlock()
		return
	}
	c.remaining[col] = 0
	c.running = false
	c.expired = true
	fn := c.onExpire
	c.mu.Unlock()

	if fn != nil {
		fn(col)
	}
}

func (c *Clock) follow(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = on
	c.since = c.now()
}

// Run charges the running side its wall time every interval until ctx is
// done.
func (c *Clock) Run(ctx context.Context, interval time.Duration) {
	c.follow(true)
	defer c.follow(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.advance()
		}
	}
}

// FormatClock renders d as h:mm:ss.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}
