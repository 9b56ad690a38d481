package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/pukagames/moonrace/go/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

type duelFixture struct {
	mgr   *Manager
	store *memstore.Store
	clock fakeClock
	id    uuid.UUID
	host  *Client
	guest *Client
}

// newDuel wires two clients onto one shared store, joined and started, with
// the countdown already elapsed.
func newDuel(t *testing.T) *duelFixture {
	t.Helper()
	ctx := context.Background()

	st := memstore.New()
	clock := clockwork.NewFakeClock()
	mgr := NewManager(st, clock, DefaultConfig())

	id, err := mgr.CreateSession(ctx, hostID)
	require.NoError(t, err)

	host := NewClient(mgr, st, clock, id, hostID)
	require.NoError(t, host.Start(ctx))
	t.Cleanup(host.Close)

	guest := NewClient(mgr, st, clock, id, guestID)
	require.NoError(t, guest.Start(ctx))
	t.Cleanup(guest.Close)

	ok, err := mgr.JoinSession(ctx, id, guestID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = mgr.StartSession(ctx, id, hostID)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(DefaultConfig().GraceWindow)

	return &duelFixture{mgr: mgr, store: st, clock: clock, id: id, host: host, guest: guest}
}

func TestClientEagerFetchOnLateJoin(t *testing.T) {
	ctx := context.Background()

	st := memstore.New()
	clock := clockwork.NewFakeClock()
	mgr := NewManager(st, clock, DefaultConfig())

	id, err := mgr.CreateSession(ctx, hostID)
	require.NoError(t, err)
	ok, err := mgr.JoinSession(ctx, id, guestID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = mgr.StartSession(ctx, id, hostID)
	require.NoError(t, err)
	require.True(t, ok)

	// The client subscribes after the race already started; the feed will
	// never replay that transition, so only the eager fetch can surface it.
	late := NewClient(mgr, st, clock, id, guestID)
	require.NoError(t, late.Start(ctx))
	defer late.Close()

	view := late.CurrentView()
	require.Equal(t, models.SessionStatusRacing, view.Status)
	require.True(t, view.HasGuest)
	require.NotNil(t, late.RaceClock())
}

func TestClientTapBlockedDuringCountdown(t *testing.T) {
	ctx := context.Background()

	st := memstore.New()
	clock := clockwork.NewFakeClock()
	mgr := NewManager(st, clock, DefaultConfig())

	id, err := mgr.CreateSession(ctx, hostID)
	require.NoError(t, err)

	host := NewClient(mgr, st, clock, id, hostID)
	require.NoError(t, host.Start(ctx))
	defer host.Close()

	// Still LOBBY: taps are ignored outright.
	score, err := host.Tap(ctx)
	require.NoError(t, err)
	require.Zero(t, score)

	ok, err := mgr.JoinSession(ctx, id, guestID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = mgr.StartSession(ctx, id, hostID)
	require.NoError(t, err)
	require.True(t, ok)

	// RACING but the countdown has not elapsed.
	score, err = host.Tap(ctx)
	require.NoError(t, err)
	require.Zero(t, score)

	clock.Advance(DefaultConfig().GraceWindow)

	score, err = host.Tap(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, score)
}

func TestClientFullDuel(t *testing.T) {
	d := newDuel(t)
	ctx := context.Background()
	threshold := DefaultConfig().WinThreshold

	// Guest gets a head start that won't be enough.
	for i := 0; i < 10; i++ {
		_, err := d.guest.Tap(ctx)
		require.NoError(t, err)
	}

	var hostScore int
	var err error
	for i := 0; i < threshold; i++ {
		hostScore, err = d.host.Tap(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, threshold, hostScore)

	// The 100th tap crossed the threshold: the host proposed itself as
	// winner and the conditional write stuck.
	hostView := d.host.CurrentView()
	require.Equal(t, models.SessionStatusFinished, hostView.Status)
	require.True(t, hostView.Won(hostID))
	require.Equal(t, threshold, hostView.OwnScore)
	require.Equal(t, 10, hostView.OpponentScore)

	// Both clients converge on the same authoritative winner.
	guestView := d.guest.CurrentView()
	require.Equal(t, models.SessionStatusFinished, guestView.Status)
	require.True(t, guestView.Won(hostID))
	require.False(t, guestView.Won(guestID))
	require.Equal(t, 10, guestView.OwnScore)
	require.Equal(t, threshold, guestView.OpponentScore)

	// Taps after the race is decided are ignored.
	score, err := d.guest.Tap(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, score)
}

func TestClientCapsTapsAtThreshold(t *testing.T) {
	d := newDuel(t)
	ctx := context.Background()
	threshold := DefaultConfig().WinThreshold

	for i := 0; i < threshold+25; i++ {
		_, err := d.host.Tap(ctx)
		require.NoError(t, err)
	}

	sess, err := d.store.GetSession(ctx, d.id)
	require.NoError(t, err)
	require.Equal(t, threshold, sess.HostPoints)
}

func TestClientToleratesStaleNotifications(t *testing.T) {
	d := newDuel(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := d.host.Tap(ctx)
		require.NoError(t, err)
	}

	// Replay a stale snapshot from before the taps and the start. The
	// status must not regress and the displayed score must not drop.
	winner := int64(hostID)
	guest := int64(guestID)
	stale := &models.Session{
		ID:         d.id,
		HostID:     hostID,
		GuestID:    &guest,
		Status:     models.SessionStatusLobby,
		HostPoints: 1,
	}
	d.host.handleChange(stale)

	view := d.host.CurrentView()
	require.Equal(t, models.SessionStatusRacing, view.Status)
	require.Equal(t, 5, view.OwnScore)

	// Finish, then replay RACING out of order.
	ok, err := d.mgr.FinishSession(ctx, d.id, winner)
	require.NoError(t, err)
	require.True(t, ok)

	racingAgain := &models.Session{
		ID:      d.id,
		HostID:  hostID,
		GuestID: &guest,
		Status:  models.SessionStatusRacing,
	}
	d.host.handleChange(racingAgain)
	d.host.handleChange(racingAgain)

	view = d.host.CurrentView()
	require.Equal(t, models.SessionStatusFinished, view.Status)
	require.True(t, view.Won(hostID))
}

func TestClientOnChangeDeliversViews(t *testing.T) {
	ctx := context.Background()

	st := memstore.New()
	clock := clockwork.NewFakeClock()
	mgr := NewManager(st, clock, DefaultConfig())

	id, err := mgr.CreateSession(ctx, hostID)
	require.NoError(t, err)

	var views []View
	host := NewClient(mgr, st, clock, id, hostID)
	host.SetOnChange(func(v View) { views = append(views, v) })
	require.NoError(t, host.Start(ctx))
	defer host.Close()

	ok, err := mgr.JoinSession(ctx, id, guestID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NotEmpty(t, views)
	last := views[len(views)-1]
	require.True(t, last.HasGuest)
	require.Equal(t, models.SessionStatusLobby, last.Status)
}
