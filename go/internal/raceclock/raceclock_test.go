package raceclock

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rc := New(clock, clock.Now().Add(3*time.Second))

	require.False(t, rc.Started())
	require.Equal(t, 3, rc.Countdown())

	// A fraction into the window still shows the ceiling.
	clock.Advance(100 * time.Millisecond)
	require.Equal(t, 3, rc.Countdown())

	clock.Advance(900 * time.Millisecond)
	require.Equal(t, 2, rc.Countdown())

	clock.Advance(1900 * time.Millisecond)
	require.Equal(t, 1, rc.Countdown())

	clock.Advance(100 * time.Millisecond)
	require.Equal(t, 0, rc.Countdown())
	require.True(t, rc.Started())
}

func TestElapsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rc := New(clock, clock.Now().Add(time.Second))

	// Before the start the elapsed display pins at zero.
	require.Equal(t, time.Duration(0), rc.Elapsed())
	require.Equal(t, "0.00", rc.ElapsedDisplay())

	clock.Advance(time.Second)
	require.Equal(t, "0.00", rc.ElapsedDisplay())

	clock.Advance(1230 * time.Millisecond)
	require.Equal(t, 1230*time.Millisecond, rc.Elapsed())
	require.Equal(t, "1.23", rc.ElapsedDisplay())

	clock.Advance(10 * time.Second)
	require.Equal(t, "11.23", rc.ElapsedDisplay())
}

func TestRunTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rc := New(clock, clock.Now().Add(200*time.Millisecond))

	// Collect the immediate call plus two ticks.
	calls := 0
	consumed := make(chan struct{}, 3)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rc.Run(context.Background(), func(countdown int, elapsed time.Duration) bool {
			calls++
			consumed <- struct{}{}
			return calls < 3
		})
	}()

	// Each advance releases one ticker fire; wait for the previous call
	// to land before advancing again.
	<-consumed
	clock.BlockUntil(1)
	clock.Advance(DisplayInterval)
	<-consumed
	clock.BlockUntil(1)
	clock.Advance(DisplayInterval)
	<-consumed
	<-done

	require.Equal(t, 3, calls)
}
