// Package raceclock derives the countdown and elapsed-time displays from the
// single shared start timestamp written into the session record. It is a
// pure presentation derivation: no extra network messages, consistent across
// both clients modulo local clock skew, which is accepted as-is.
package raceclock

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// DisplayInterval is the sub-second tick used by display loops, matching the
// cadence of the countdown overlay.
const DisplayInterval = 100 * time.Millisecond

// RaceClock renders a descending whole-second countdown until the shared
// start instant, then an ascending elapsed display with two-decimal
// precision.
type RaceClock struct {
	clock clockwork.Clock
	start time.Time
}

func New(clock clockwork.Clock, start time.Time) *RaceClock {
	return &RaceClock{clock: clock, start: start}
}

// Start returns the shared start instant.
func (r *RaceClock) Start() time.Time {
	return r.start
}

// Started reports whether the start instant has passed.
func (r *RaceClock) Started() bool {
	return !r.clock.Now().Before(r.start)
}

// Countdown returns the ceiling of the remaining whole seconds before the
// start, and 0 once the race is underway.
func (r *RaceClock) Countdown() int {
	remaining := r.start.Sub(r.clock.Now())
	if remaining <= 0 {
		return 0
	}
	secs := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// Elapsed returns how long the race has been running, never negative.
func (r *RaceClock) Elapsed() time.Duration {
	d := r.clock.Now().Sub(r.start)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedDisplay formats the elapsed time with two-decimal-second precision.
func (r *RaceClock) ElapsedDisplay() string {
	return fmt.Sprintf("%.2f", r.Elapsed().Seconds())
}

// Run invokes fn on every display tick until the context is cancelled or fn
// returns false. The first call happens immediately.
func (r *RaceClock) Run(ctx context.Context, fn func(countdown int, elapsed time.Duration) bool) {
	ticker := r.clock.NewTicker(DisplayInterval)
	defer ticker.Stop()

	for {
		if !fn(r.Countdown(), r.Elapsed()) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
