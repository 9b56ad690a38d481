package feed

import (
	"time"

	"github.com/google/uuid"
	"github.com/pukagames/moonrace/go/internal/models"
)

// EventType labels which write produced a change notification. Consumers
// must not rely on it for state decisions; the session snapshot is the
// authority and events may arrive out of order.
type EventType string

const (
	EventTypeSessionCreated EventType = "SessionCreated"
	EventTypeGuestJoined    EventType = "GuestJoined"
	EventTypeRaceStarted    EventType = "RaceStarted"
	EventTypeScoreChanged   EventType = "ScoreChanged"
	EventTypeRaceFinished   EventType = "RaceFinished"
	EventTypeRematchLinked  EventType = "RematchLinked"

	// EventTypeSessionUpdated labels fallback republishes, where the
	// originating write is unknown.
	EventTypeSessionUpdated EventType = "SessionUpdated"
)

// SessionEvent is the envelope published on the change feed. It always
// carries a full copy of the updated record, mirroring what the store hands
// to direct subscribers.
type SessionEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Session   *models.Session `json:"session"`
}

// SubjectPrefix is the NATS subject tree for session change events.
const SubjectPrefix = "duel.session"

// Subject returns the per-session subject.
func Subject(sessionID uuid.UUID) string {
	return SubjectPrefix + "." + sessionID.String()
}

// WildcardSubject matches every session's events.
const WildcardSubject = SubjectPrefix + ".*"
