package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcilerOptimisticTaps(t *testing.T) {
	r := NewReconciler()
	require.Equal(t, 0, r.OwnScore())

	require.Equal(t, 1, r.LocalTap(1))
	require.Equal(t, 2, r.LocalTap(1))
	require.Equal(t, 2, r.OwnScore())
}

func TestReconcilerStaleOwnObservationIgnored(t *testing.T) {
	r := NewReconciler()
	for i := 0; i < 10; i++ {
		r.LocalTap(1)
	}

	// A notification reflecting a now-stale lower read must not regress
	// the displayed score.
	r.ObserveOwn(4)
	require.Equal(t, 10, r.OwnScore())

	// The store catching up past the optimistic count is adopted.
	r.ObserveOwn(12)
	require.Equal(t, 12, r.OwnScore())
}

func TestReconcilerOpponentIsAuthoritativeOnly(t *testing.T) {
	r := NewReconciler()
	require.Equal(t, 0, r.OpponentScore())

	r.ObserveOpponent(5)
	require.Equal(t, 5, r.OpponentScore())

	// Out-of-order stale notification.
	r.ObserveOpponent(3)
	require.Equal(t, 5, r.OpponentScore())

	r.ObserveOpponent(9)
	require.Equal(t, 9, r.OpponentScore())
}

func TestReconcilerOwnScoreMonotonicAcrossInterleavings(t *testing.T) {
	r := NewReconciler()
	prev := 0

	steps := []func(){
		func() { r.LocalTap(1) },
		func() { r.ObserveOwn(0) },
		func() { r.LocalTap(1) },
		func() { r.LocalTap(1) },
		func() { r.ObserveOwn(2) },
		func() { r.ObserveOwn(1) },
		func() { r.LocalTap(1) },
		func() { r.ObserveOwn(6) },
		func() { r.ObserveOwn(3) },
	}
	for i, step := range steps {
		step()
		got := r.OwnScore()
		require.GreaterOrEqual(t, got, prev, "displayed score regressed at step %d", i)
		prev = got
	}
}
