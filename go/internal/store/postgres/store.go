// Package postgres backs the SessionStore with Postgres via pgx. Conditional
// writes are expressed as UPDATE guards so the first-claim and first-winner
// races are settled by the database, and score increments are applied against
// the current stored value inside a single UPDATE so concurrent taps from the
// same player can never lose updates.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pukagames/moonrace/go/internal/feed"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/pukagames/moonrace/go/internal/store"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the Postgres channel session writes are announced on.
const NotifyChannel = "duel_session_changes"

// ChangeFeed is what the store delegates Subscribe to — in production the
// NATS-backed subscriber fed by the Listener.
type ChangeFeed interface {
	Subscribe(sessionID uuid.UUID, fn store.ChangeHandler) (store.Unsubscribe, error)
}

// Store implements store.SessionStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	feed ChangeFeed
}

var _ store.SessionStore = (*Store)(nil)

func New(pool *pgxpool.Pool, changeFeed ChangeFeed) *Store {
	return &Store{pool: pool, feed: changeFeed}
}

// notifyPayload is what a mutating statement hands to pg_notify. The
// Listener resolves it back to a full row before publishing.
type notifyPayload struct {
	SessionID string         `json:"session_id"`
	Event     feed.EventType `json:"event"`
}

const sessionColumns = `id, host_id, guest_id, status, host_points, guest_points,
	start_time, winner_id, next_session_id, created_at, updated_at`

func (s *Store) CreateSession(ctx context.Context, hostID int64) (*models.Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO duel_sessions (host_id, status)
		VALUES ($1, 'LOBBY')
		RETURNING `+sessionColumns,
		hostID,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.notify(ctx, sess.ID, feed.EventTypeSessionCreated)
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM duel_sessions
		WHERE id = $1`,
		id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (s *Store) ClaimGuestSlot(ctx context.Context, id uuid.UUID, guestID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE duel_sessions
		SET guest_id = $2, updated_at = now()
		WHERE id = $1 AND guest_id IS NULL`,
		id, guestID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim guest slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.notify(ctx, id, feed.EventTypeGuestJoined)
	return true, nil
}

func (s *Store) StartRace(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE duel_sessions
		SET status = 'RACING', start_time = $2, updated_at = now()
		WHERE id = $1 AND status = 'LOBBY'`,
		id, startTime.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to start race: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.notify(ctx, id, feed.EventTypeRaceStarted)
	return true, nil
}

func (s *Store) IncrementScore(ctx context.Context, id uuid.UUID, playerID int64, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative score increment: %d", amount)
	}

	// The increment reads the stored value inside the UPDATE itself, never
	// a client-computed one.
	tag, err := s.pool.Exec(ctx, `
		UPDATE duel_sessions
		SET host_points   = host_points  + CASE WHEN host_id  = $2 THEN $3 ELSE 0 END,
		    guest_points  = guest_points + CASE WHEN guest_id = $2 THEN $3 ELSE 0 END,
		    updated_at    = now()
		WHERE id = $1 AND (host_id = $2 OR guest_id = $2)`,
		id, playerID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to increment score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("player %d is not a participant of session %s", playerID, id)
	}
	s.notify(ctx, id, feed.EventTypeScoreChanged)
	return nil
}

func (s *Store) FinishRace(ctx context.Context, id uuid.UUID, winnerID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE duel_sessions
		SET status = 'FINISHED', winner_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'RACING'`,
		id, winnerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finish race: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.notify(ctx, id, feed.EventTypeRaceFinished)
	return true, nil
}

func (s *Store) LinkRematch(ctx context.Context, id, nextID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE duel_sessions
		SET next_session_id = $2, updated_at = now()
		WHERE id = $1 AND next_session_id IS NULL`,
		id, nextID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link rematch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.notify(ctx, id, feed.EventTypeRematchLinked)
	return true, nil
}

func (s *Store) Subscribe(sessionID uuid.UUID, fn store.ChangeHandler) (store.Unsubscribe, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("no change feed configured")
	}
	return s.feed.Subscribe(sessionID, fn)
}

// notify announces a committed write on the Postgres channel. A lost
// notification is degraded delivery, not a failed write: the Listener's
// fallback sweep re-publishes recently updated rows.
func (s *Store) notify(ctx context.Context, id uuid.UUID, eventType feed.EventType) {
	payload, err := json.Marshal(notifyPayload{SessionID: id.String(), Event: eventType})
	if err != nil {
		return
	}
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, string(payload)); err != nil {
		log.Debug().Err(err).Str("session_id", id.String()).Msg("pg_notify failed")
	}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var sess models.Session
	err := row.Scan(
		&sess.ID,
		&sess.HostID,
		&sess.GuestID,
		&sess.Status,
		&sess.HostPoints,
		&sess.GuestPoints,
		&sess.StartTime,
		&sess.WinnerID,
		&sess.NextSessionID,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
