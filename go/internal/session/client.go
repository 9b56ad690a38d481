package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/pukagames/moonrace/go/internal/raceclock"
	"github.com/pukagames/moonrace/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Client is the per-device half of the protocol. Taps, display ticks and
// store change notifications all arrive as independent callbacks; they meet
// in one mutex-guarded state container so every transition is applied
// exactly once no matter the delivery order.
type Client struct {
	manager  *Manager
	store    store.SessionStore
	clock    clockwork.Clock
	playerID int64
	id       uuid.UUID

	mu             sync.Mutex
	sm             *StateMachine
	scores         *Reconciler
	hasGuest       bool
	nextSessionID  *uuid.UUID
	finishProposed bool
	unsub          store.Unsubscribe
	onChange       func(View)

	race *raceclock.RaceClock
}

// View is the immutable per-notification rendering of the client state.
type View struct {
	SessionID     uuid.UUID
	Status        models.SessionStatus
	OwnScore      int
	OpponentScore int
	HasGuest      bool
	WinnerID      *int64
	NextSessionID *uuid.UUID
}

// Won reports whether this view's winner is the given player.
func (v View) Won(playerID int64) bool {
	return v.WinnerID != nil && *v.WinnerID == playerID
}

func NewClient(mgr *Manager, st store.SessionStore, clock clockwork.Clock, sessionID uuid.UUID, playerID int64) *Client {
	return &Client{
		manager:  mgr,
		store:    st,
		clock:    clock,
		playerID: playerID,
		id:       sessionID,
		sm:       NewStateMachine(),
		scores:   NewReconciler(),
	}
}

// SetOnChange registers a callback invoked with a fresh View after every
// applied change notification. Must be called before Start.
func (c *Client) SetOnChange(fn func(View)) {
	c.onChange = fn
}

// Start subscribes to the change feed and then eagerly fetches the current
// record once, in that order, so no change can fall between the two. The
// eager fetch is mandatory: the feed only reports changes made after the
// subscription begins.
func (c *Client) Start(ctx context.Context) error {
	unsub, err := c.store.Subscribe(c.id, c.handleChange)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session: %w", err)
	}
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()

	sess, err := c.store.GetSession(ctx, c.id)
	if err != nil {
		unsub()
		return fmt.Errorf("failed to fetch session: %w", err)
	}
	c.handleChange(sess)
	return nil
}

// Close detaches from the change feed.
func (c *Client) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Tap applies one optimistic increment and syncs it to the store. Taps are
// ignored while the countdown is still running, after the local view left
// RACING, and past the win threshold. When the optimistic score crosses the
// threshold the client immediately proposes itself as winner; whether that
// proposal sticks is decided by the store's conditional write.
func (c *Client) Tap(ctx context.Context) (int, error) {
	threshold := c.manager.Config().WinThreshold

	c.mu.Lock()
	if c.sm.Status() != models.SessionStatusRacing {
		own := c.scores.OwnScore()
		c.mu.Unlock()
		return own, nil
	}
	if st := c.sm.StartTime(); st != nil && c.clock.Now().Before(*st) {
		own := c.scores.OwnScore()
		c.mu.Unlock()
		return own, nil
	}
	if c.scores.OwnScore() >= threshold {
		own := c.scores.OwnScore()
		c.mu.Unlock()
		return own, nil
	}

	own := c.scores.LocalTap(1)
	propose := own >= threshold && !c.finishProposed
	if propose {
		c.finishProposed = true
	}
	c.mu.Unlock()

	if err := c.manager.IncrementScore(ctx, c.id, c.playerID, 1); err != nil {
		return own, err
	}
	if propose {
		if _, err := c.manager.FinishSession(ctx, c.id, c.playerID); err != nil {
			return own, err
		}
	}
	return own, nil
}

// handleChange folds one change notification into the local state. It is
// tolerant of at-least-once, unordered delivery: stale statuses, repeated
// records and score notifications lower than the optimistic count are all
// silently absorbed.
func (c *Client) handleChange(sess *models.Session) {
	if sess == nil || sess.ID != c.id {
		return
	}

	c.mu.Lock()
	c.scores.ObserveOwn(sess.PointsFor(c.playerID))
	c.scores.ObserveOpponent(sess.OpponentPointsFor(c.playerID))
	if sess.HasGuest() {
		c.hasGuest = true
	}
	if c.nextSessionID == nil && sess.NextSessionID != nil {
		next := *sess.NextSessionID
		c.nextSessionID = &next
	}

	tr, advanced := c.sm.Observe(sess)
	if advanced && c.sm.Status() == models.SessionStatusRacing && c.race == nil {
		if st := c.sm.StartTime(); st != nil {
			c.race = raceclock.New(c.clock, *st)
		}
	}

	view := c.viewLocked()
	fn := c.onChange
	c.mu.Unlock()

	if advanced {
		log.Debug().
			Str("session_id", c.id.String()).
			Str("from", string(tr.From)).
			Str("to", string(tr.To)).
			Msg("session advanced")
	}
	if fn != nil {
		fn(view)
	}
}

// RaceClock returns the countdown/elapsed derivation, or nil before the
// shared start time was observed.
func (c *Client) RaceClock() *raceclock.RaceClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.race
}

// CurrentView returns the client's present view of the duel.
func (c *Client) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Client) viewLocked() View {
	v := View{
		SessionID:     c.id,
		Status:        c.sm.Status(),
		OwnScore:      c.scores.OwnScore(),
		OpponentScore: c.scores.OpponentScore(),
		HasGuest:      c.hasGuest,
	}
	if w := c.sm.WinnerID(); w != nil {
		winner := *w
		v.WinnerID = &winner
	}
	if c.nextSessionID != nil {
		next := *c.nextSessionID
		v.NextSessionID = &next
	}
	return v
}
