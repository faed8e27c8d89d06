package chess

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestClockTicksActiveSideOnly(t *testing.T) {
	c := NewClock(time.Minute)
	if c.Running() {
		t.Fatal("Expected a new clock to be stopped")
	}
	c.Tick(time.Second)
	if c.Remaining(White) != time.Minute {
		t.Error("Expected a stopped clock to ignore ticks")
	}

	c.Start(White)
	c.Tick(10 * time.Second)
	c.Start(Black)
	c.Tick(5 * time.Second)

	if got := c.Remaining(White); got != 50*time.Second {
		t.Errorf("Expected white to have 50s, got %v", got)
	}
	if got := c.Remaining(Black); got != 55*time.Second {
		t.Errorf("Expected black to have 55s, got %v", got)
	}

	c.Stop()
	c.Tick(5 * time.Second)
	if got := c.Remaining(Black); got != 55*time.Second {
		t.Errorf("Expected a stopped clock to keep 55s, got %v", got)
	}
	if c.Active() != Black {
		t.Error("Expected the clock to remember the last active side")
	}
}

func TestClockExpiresOnce(t *testing.T) {
	c := NewClock(3 * time.Second)
	var calls int
	var expired Color
	c.OnExpire(func(col Color) {
		calls++
		expired = col
	})

	c.Start(Black)
	c.Tick(2 * time.Second)
	c.Tick(2 * time.Second)
	c.Tick(2 * time.Second)

	if calls != 1 || expired != Black {
		t.Errorf("Expected one expiry for black, got %d calls for %s", calls, expired)
	}
	if c.Remaining(Black) != 0 {
		t.Errorf("Expected black's time to be clamped at zero, got %v", c.Remaining(Black))
	}
	if c.Running() {
		t.Error("Expected the clock to stop on expiry")
	}

	c.Start(White)
	if c.Running() {
		t.Error("Expected an expired clock to refuse to start")
	}

	c.Reset(time.Minute)
	c.Start(White)
	if !c.Running() || c.Remaining(White) != time.Minute {
		t.Error("Expected Reset to clear the expiry")
	}
}

func TestClockRun(t *testing.T) {
	c := NewClock(50 * time.Millisecond)
	var fired atomic.Bool
	done := make(chan struct{})
	c.OnExpire(func(Color) {
		fired.Store(true)
		close(done)
	})
	c.Start(White)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go c.Run(ctx, 5*time.Millisecond)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Expected the clock to expire")
	}
	if !fired.Load() {
		t.Error("Expected the expiry callback to run")
	}
}

func TestClockChargesWallTimeBetweenTicks(t *testing.T) {
	c := NewClock(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.follow(true)

	c.Start(White)
	now = now.Add(1300 * time.Millisecond)
	c.Start(Black)
	if got := c.Remaining(White); got != 58700*time.Millisecond {
		t.Errorf("Expected white to be charged 1.3s, got %v left", got)
	}
	if got := c.Seconds(White); got != 59 {
		t.Errorf("Expected 58.7s to show as 59, got %d", got)
	}

	now = now.Add(400 * time.Millisecond)
	c.advance()
	now = now.Add(100 * time.Millisecond)
	c.Stop()
	if got := c.Remaining(Black); got != 59500*time.Millisecond {
		t.Errorf("Expected black to be charged 0.5s, got %v left", got)
	}

	now = now.Add(time.Hour)
	c.advance()
	if got := c.Remaining(Black); got != 59500*time.Millisecond {
		t.Errorf("Expected a stopped clock to keep its time, got %v", got)
	}
}

func TestClockFlagFallsOnNextTick(t *testing.T) {
	c := NewClock(time.Second)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	var expired []Color
	c.OnExpire(func(col Color) { expired = append(expired, col) })
	c.follow(true)

	c.Start(White)
	now = now.Add(3 * time.Second)
	c.Start(Black)
	if len(expired) != 0 {
		t.Fatal("Expected switching sides not to fire the expiry")
	}
	if c.Remaining(White) != 0 {
		t.Errorf("Expected white to be clamped at zero, got %v", c.Remaining(White))
	}

	c.Start(White)
	c.advance()
	if len(expired) != 1 || expired[0] != White {
		t.Errorf("Expected white to expire on the next tick, got %v", expired)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{time.Hour, "1:00:00"},
		{59*time.Minute + 5*time.Second, "0:59:05"},
		{1500 * time.Millisecond, "0:00:01"},
		{0, "0:00:00"},
		{-time.Second, "0:00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.d); got != tt.expected {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}
