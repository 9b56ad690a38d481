package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle phase of a duel session.
type SessionStatus string

const (
	SessionStatusLobby    SessionStatus = "LOBBY"
	SessionStatusRacing   SessionStatus = "RACING"
	SessionStatusFinished SessionStatus = "FINISHED"
)

var statusRank = map[SessionStatus]int{
	SessionStatusLobby:    0,
	SessionStatusRacing:   1,
	SessionStatusFinished: 2,
}

// Rank returns the position of the status in the LOBBY < RACING < FINISHED
// order. Unknown statuses rank below LOBBY.
func (s SessionStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle order.
func (s SessionStatus) Before(other SessionStatus) bool {
	return s.Rank() < other.Rank()
}

// Valid reports whether s is one of the known lifecycle phases.
func (s SessionStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Session represents one duel between two players. It is the single shared
// record both clients mutate and re-derive their local state from.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	HostID        int64         `json:"host_id"`
	GuestID       *int64        `json:"guest_id,omitempty"`
	Status        SessionStatus `json:"status"`
	HostPoints    int           `json:"host_points"`
	GuestPoints   int           `json:"guest_points"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	WinnerID      *int64        `json:"winner_id,omitempty"`
	NextSessionID *uuid.UUID    `json:"next_session_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsHost reports whether playerID created this session.
func (s *Session) IsHost(playerID int64) bool {
	return s.HostID == playerID
}

// IsParticipant reports whether playerID occupies either slot.
func (s *Session) IsParticipant(playerID int64) bool {
	if s.HostID == playerID {
		return true
	}
	return s.GuestID != nil && *s.GuestID == playerID
}

// HasGuest reports whether the open slot has been claimed.
func (s *Session) HasGuest() bool {
	return s.GuestID != nil
}

// PointsFor returns the stored score attributed to playerID.
func (s *Session) PointsFor(playerID int64) int {
	if s.HostID == playerID {
		return s.HostPoints
	}
	return s.GuestPoints
}

// OpponentPointsFor returns the stored score of playerID's opponent.
func (s *Session) OpponentPointsFor(playerID int64) int {
	if s.HostID == playerID {
		return s.GuestPoints
	}
	return s.HostPoints
}

// Clone returns a deep copy so subscribers can hold snapshots without
// aliasing the store's record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.GuestID = clonePtr(s.GuestID)
	out.WinnerID = clonePtr(s.WinnerID)
	out.NextSessionID = clonePtr(s.NextSessionID)
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
