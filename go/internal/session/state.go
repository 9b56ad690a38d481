package session

import (
	"time"

	"github.com/pukagames/moonrace/go/internal/models"
)

// Transition describes one observed advance of the session lifecycle.
type Transition struct {
	From models.SessionStatus
	To   models.SessionStatus
}

// StateMachine folds observed session records into a local view of the
// lifecycle. Both clients run one of these against the same record and must
// reach identical conclusions, so the fold is pure: status only ever
// advances (a stale RACING arriving after FINISHED is dropped), re-observing
// the current status is a no-op, and FINISHED always adopts the
// authoritative winner regardless of any local optimistic assumption.
//
// StateMachine is not safe for concurrent use; the Client serializes access.
type StateMachine struct {
	status    models.SessionStatus
	startTime *time.Time
	winnerID  *int64
}

func NewStateMachine() *StateMachine {
	return &StateMachine{status: models.SessionStatusLobby}
}

// Observe applies a snapshot of the shared record. It returns the transition
// and true when the lifecycle advanced, and a zero Transition and false for
// stale, duplicate, or unknown statuses.
func (m *StateMachine) Observe(sess *models.Session) (Transition, bool) {
	if sess == nil || !sess.Status.Valid() {
		return Transition{}, false
	}

	// start_time is set exactly once; adopt it whenever visible so a
	// client that first observes the record mid-race still gets it.
	if m.startTime == nil && sess.StartTime != nil {
		t := *sess.StartTime
		m.startTime = &t
	}
	// Same for the winner: the store value is the single source of truth.
	if sess.Status == models.SessionStatusFinished && sess.WinnerID != nil {
		w := *sess.WinnerID
		m.winnerID = &w
	}

	if !m.status.Before(sess.Status) {
		return Transition{}, false
	}

	tr := Transition{From: m.status, To: sess.Status}
	m.status = sess.Status
	return tr, true
}

// Status returns the furthest lifecycle phase observed so far.
func (m *StateMachine) Status() models.SessionStatus {
	return m.status
}

// StartTime returns the shared race start instant, if observed yet.
func (m *StateMachine) StartTime() *time.Time {
	return m.startTime
}

// WinnerID returns the authoritative winner, once FINISHED was observed.
func (m *StateMachine) WinnerID() *int64 {
	return m.winnerID
}
