package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pukagames/moonrace/go/internal/models"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// ChangeHandler receives a copy of the full updated session record whenever
// any field changes. Delivery is at-least-once and unordered relative to
// other observers.
type ChangeHandler func(session *models.Session)

// Unsubscribe detaches a change handler. Safe to call more than once.
type Unsubscribe func()

// SessionStore is the boundary to the shared record store both clients
// coordinate through. Conditional operations return false, not an error,
// when the guard did not match: the caller must branch on the boolean.
//
// Change notifications only cover writes after Subscribe returns, so a
// consumer joining mid-session must pair Subscribe with one eager
// GetSession.
type SessionStore interface {
	// CreateSession inserts a fresh LOBBY record with zero scores.
	CreateSession(ctx context.Context, hostID int64) (*models.Session, error)

	// GetSession reads the current record by id.
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)

	// ClaimGuestSlot sets the guest id only while it is currently null.
	// Returns false if another guest already claimed the slot or the
	// session id is unknown.
	ClaimGuestSlot(ctx context.Context, id uuid.UUID, guestID int64) (bool, error)

	// StartRace moves LOBBY to RACING and stamps the shared start time.
	// Returns false if the session already left LOBBY.
	StartRace(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error)

	// IncrementScore atomically adds amount to the stored score of
	// playerID. The addition happens against the current stored value,
	// never a client-computed one, so concurrent taps cannot lose updates.
	IncrementScore(ctx context.Context, id uuid.UUID, playerID int64, amount int) error

	// FinishRace moves RACING to FINISHED and records the winner. The
	// first writer wins; a late second attempt returns false and leaves
	// the persisted winner untouched.
	FinishRace(ctx context.Context, id uuid.UUID, winnerID int64) (bool, error)

	// LinkRematch points the finished session at its successor, only
	// while the link is still unset.
	LinkRematch(ctx context.Context, id, nextID uuid.UUID) (bool, error)

	// Subscribe registers fn for future changes to the session.
	Subscribe(sessionID uuid.UUID, fn ChangeHandler) (Unsubscribe, error)
}
