package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pukagames/moonrace/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Config holds the tunable rules of a duel.
type Config struct {
	// WinThreshold is the score at which a player's race ends.
	WinThreshold int
	// GraceWindow is how far in the future the shared start time is
	// stamped, so both clients can count down to the same instant.
	GraceWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		WinThreshold: 100,
		GraceWindow:  3 * time.Second,
	}
}

// WinRewarder defines what the manager needs to credit a winner.
type WinRewarder interface {
	AwardWin(ctx context.Context, playerID int64) (int64, error)
}

// Manager owns the lifecycle commands of duel sessions. Every command is a
// write against the SessionStore; local state is re-derived from the store's
// change notifications, never from command results.
type Manager struct {
	store    store.SessionStore
	clock    clockwork.Clock
	cfg      Config
	rewarder WinRewarder
}

func NewManager(st store.SessionStore, clock clockwork.Clock, cfg Config) *Manager {
	if cfg.WinThreshold <= 0 {
		cfg.WinThreshold = DefaultConfig().WinThreshold
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = DefaultConfig().GraceWindow
	}
	return &Manager{
		store: st,
		clock: clock,
		cfg:   cfg,
	}
}

func (m *Manager) Config() Config {
	return m.cfg
}

// SetRewarder installs an optional coin reward for winners. The credit runs
// only when the finish proposal wins the conditional write, so concurrent
// finishes can never double-pay.
func (m *Manager) SetRewarder(r WinRewarder) {
	m.rewarder = r
}

// CreateSession inserts a fresh LOBBY session hosted by hostID.
func (m *Manager) CreateSession(ctx context.Context, hostID int64) (uuid.UUID, error) {
	sess, err := m.store.CreateSession(ctx, hostID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Int64("host_id", hostID).
		Msg("session created")
	return sess.ID, nil
}

// JoinSession claims the open guest slot. A false result means the slot was
// already taken or the session id is unknown; the caller must treat it as
// "cannot join", not as a transient fault to retry.
func (m *Manager) JoinSession(ctx context.Context, id uuid.UUID, guestID int64) (bool, error) {
	claimed, err := m.store.ClaimGuestSlot(ctx, id, guestID)
	if err != nil {
		return false, fmt.Errorf("failed to join session: %w", err)
	}
	if !claimed {
		log.Info().
			Str("session_id", id.String()).
			Int64("guest_id", guestID).
			Msg("guest slot unavailable")
		return false, nil
	}

	log.Info().
		Str("session_id", id.String()).
		Int64("guest_id", guestID).
		Msg("guest joined session")
	return true, nil
}

// StartSession moves the session from LOBBY to RACING. Only the host may
// start, and only once a guest has claimed the open slot. The start time is
// stamped a grace window into the future so both clients count down to the
// same absolute instant.
func (m *Manager) StartSession(ctx context.Context, id uuid.UUID, hostID int64) (bool, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.IsHost(hostID) {
		return false, nil
	}
	if !sess.HasGuest() {
		return false, nil
	}

	startAt := m.clock.Now().Add(m.cfg.GraceWindow)
	started, err := m.store.StartRace(ctx, id, startAt)
	if err != nil {
		return false, fmt.Errorf("failed to start session: %w", err)
	}
	if !started {
		// Already left LOBBY, e.g. a double press of start.
		return false, nil
	}

	log.Info().
		Str("session_id", id.String()).
		Time("start_time", startAt).
		Msg("race starting")
	return true, nil
}

// IncrementScore adds amount taps to playerID's stored score. The addition
// is atomic at the store so rapid concurrent taps never lose updates.
func (m *Manager) IncrementScore(ctx context.Context, id uuid.UUID, playerID int64, amount int) error {
	if err := m.store.IncrementScore(ctx, id, playerID, amount); err != nil {
		return fmt.Errorf("failed to increment score: %w", err)
	}
	return nil
}

// FinishSession proposes winnerID as the race winner. The underlying write
// is conditional on the session still RACING, so when both players cross
// the threshold near-simultaneously exactly one proposal is persisted and
// the loser's call reports false.
func (m *Manager) FinishSession(ctx context.Context, id uuid.UUID, winnerID int64) (bool, error) {
	won, err := m.store.FinishRace(ctx, id, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to finish session: %w", err)
	}
	if !won {
		log.Debug().
			Str("session_id", id.String()).
			Int64("proposed_winner", winnerID).
			Msg("finish proposal lost the race")
		return false, nil
	}

	log.Info().
		Str("session_id", id.String()).
		Int64("winner_id", winnerID).
		Msg("race finished")

	if m.rewarder != nil {
		if _, err := m.rewarder.AwardWin(ctx, winnerID); err != nil {
			// The result stands; only the payout failed.
			log.Error().
				Err(err).
				Str("session_id", id.String()).
				Int64("winner_id", winnerID).
				Msg("failed to credit win reward")
		}
	}
	return true, nil
}

// CreateRematch creates a fresh session and links the finished one to it.
// The two writes are not transactional: a crash in between leaves an orphan
// new session with no link. That is accepted — the new session is still
// independently joinable, only the guest's auto-navigation is lost — so a
// failed link is logged, never masked, and the new id is still returned.
func (m *Manager) CreateRematch(ctx context.Context, oldID uuid.UUID, hostID int64) (uuid.UUID, error) {
	newID, err := m.CreateSession(ctx, hostID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create rematch session: %w", err)
	}

	linked, err := m.store.LinkRematch(ctx, oldID, newID)
	if err != nil || !linked {
		log.Warn().
			Err(err).
			Str("session_id", oldID.String()).
			Str("next_session_id", newID.String()).
			Msg("rematch link not recorded; new session remains joinable by invite")
		return newID, nil
	}

	log.Info().
		Str("session_id", oldID.String()).
		Str("next_session_id", newID.String()).
		Msg("rematch created")
	return newID, nil
}
