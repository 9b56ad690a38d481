// Package memstore is an in-memory SessionStore used by tests and local
// development. It honors the same conditional-write and atomic-increment
// contracts as the Postgres store and fans out change notifications to
// in-process subscribers.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/pukagames/moonrace/go/internal/store"
)

// Store keeps all session records behind one mutex. Notifications are
// delivered synchronously on the mutating goroutine, after the write lock is
// released, each subscriber receiving its own deep copy of the record.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session

	subMu   sync.Mutex
	subs    map[uuid.UUID]map[int]store.ChangeHandler
	nextSub int
}

var _ store.SessionStore = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*models.Session),
		subs:     make(map[uuid.UUID]map[int]store.ChangeHandler),
	}
}

func (s *Store) CreateSession(ctx context.Context, hostID int64) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.New(),
		HostID:    hostID,
		Status:    models.SessionStatusLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.notify(sess.ID)
	return sess.Clone(), nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrSessionNotFound
	}
	out := sess.Clone()
	s.mu.Unlock()
	return out, nil
}

func (s *Store) ClaimGuestSlot(ctx context.Context, id uuid.UUID, guestID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.GuestID != nil {
		s.mu.Unlock()
		return false, nil
	}
	sess.GuestID = &guestID
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify(id)
	return true, nil
}

func (s *Store) StartRace(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.SessionStatusLobby {
		s.mu.Unlock()
		return false, nil
	}
	t := startTime.UTC()
	sess.Status = models.SessionStatusRacing
	sess.StartTime = &t
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify(id)
	return true, nil
}

func (s *Store) IncrementScore(ctx context.Context, id uuid.UUID, playerID int64, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("negative score increment: %d", amount)
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrSessionNotFound
	}
	switch {
	case sess.HostID == playerID:
		sess.HostPoints += amount
	case sess.GuestID != nil && *sess.GuestID == playerID:
		sess.GuestPoints += amount
	default:
		s.mu.Unlock()
		return fmt.Errorf("player %d is not a participant of session %s", playerID, id)
	}
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify(id)
	return nil
}

func (s *Store) FinishRace(ctx context.Context, id uuid.UUID, winnerID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.SessionStatusRacing {
		s.mu.Unlock()
		return false, nil
	}
	sess.Status = models.SessionStatusFinished
	sess.WinnerID = &winnerID
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify(id)
	return true, nil
}

func (s *Store) LinkRematch(ctx context.Context, id, nextID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.NextSessionID != nil {
		s.mu.Unlock()
		return false, nil
	}
	sess.NextSessionID = &nextID
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify(id)
	return true, nil
}

func (s *Store) Subscribe(sessionID uuid.UUID, fn store.ChangeHandler) (store.Unsubscribe, error) {
	s.subMu.Lock()
	if s.subs[sessionID] == nil {
		s.subs[sessionID] = make(map[int]store.ChangeHandler)
	}
	token := s.nextSub
	s.nextSub++
	s.subs[sessionID][token] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		if handlers, ok := s.subs[sessionID]; ok {
			delete(handlers, token)
			if len(handlers) == 0 {
				delete(s.subs, sessionID)
			}
		}
		s.subMu.Unlock()
	}, nil
}

func (s *Store) notify(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	var snapshot *models.Session
	if ok {
		snapshot = sess.Clone()
	}
	s.mu.Unlock()
	if snapshot == nil {
		return
	}

	s.subMu.Lock()
	handlers := make([]store.ChangeHandler, 0, len(s.subs[id]))
	for _, fn := range s.subs[id] {
		handlers = append(handlers, fn)
	}
	s.subMu.Unlock()

	for _, fn := range handlers {
		fn(snapshot.Clone())
	}
}
