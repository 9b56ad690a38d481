package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/stretchr/testify/require"
)

func snapshot(status models.SessionStatus) *models.Session {
	return &models.Session{
		ID:     uuid.New(),
		HostID: 1,
		Status: status,
	}
}

func TestStateMachineAdvances(t *testing.T) {
	m := NewStateMachine()
	require.Equal(t, models.SessionStatusLobby, m.Status())

	start := time.Now().Add(3 * time.Second)
	racing := snapshot(models.SessionStatusRacing)
	racing.StartTime = &start

	tr, advanced := m.Observe(racing)
	require.True(t, advanced)
	require.Equal(t, models.SessionStatusLobby, tr.From)
	require.Equal(t, models.SessionStatusRacing, tr.To)
	require.NotNil(t, m.StartTime())
	require.True(t, m.StartTime().Equal(start))

	winner := int64(1)
	finished := snapshot(models.SessionStatusFinished)
	finished.WinnerID = &winner

	tr, advanced = m.Observe(finished)
	require.True(t, advanced)
	require.Equal(t, models.SessionStatusRacing, tr.From)
	require.Equal(t, models.SessionStatusFinished, tr.To)
	require.NotNil(t, m.WinnerID())
	require.Equal(t, winner, *m.WinnerID())
}

func TestStateMachineReapplyIsNoop(t *testing.T) {
	m := NewStateMachine()

	_, advanced := m.Observe(snapshot(models.SessionStatusRacing))
	require.True(t, advanced)

	_, advanced = m.Observe(snapshot(models.SessionStatusRacing))
	require.False(t, advanced)
	require.Equal(t, models.SessionStatusRacing, m.Status())
}

func TestStateMachineNeverRegresses(t *testing.T) {
	m := NewStateMachine()

	winner := int64(7)
	finished := snapshot(models.SessionStatusFinished)
	finished.WinnerID = &winner
	_, advanced := m.Observe(finished)
	require.True(t, advanced)

	// A stale RACING notification delivered late must be dropped.
	_, advanced = m.Observe(snapshot(models.SessionStatusRacing))
	require.False(t, advanced)
	require.Equal(t, models.SessionStatusFinished, m.Status())
	require.Equal(t, winner, *m.WinnerID())

	_, advanced = m.Observe(snapshot(models.SessionStatusLobby))
	require.False(t, advanced)
	require.Equal(t, models.SessionStatusFinished, m.Status())
}

func TestStateMachineMidSessionJoin(t *testing.T) {
	// A client that starts observation mid-session sees FINISHED as its
	// very first snapshot and must adopt the winner immediately.
	m := NewStateMachine()

	winner := int64(42)
	start := time.Now()
	finished := snapshot(models.SessionStatusFinished)
	finished.WinnerID = &winner
	finished.StartTime = &start

	tr, advanced := m.Observe(finished)
	require.True(t, advanced)
	require.Equal(t, models.SessionStatusLobby, tr.From)
	require.Equal(t, models.SessionStatusFinished, tr.To)
	require.Equal(t, winner, *m.WinnerID())
	require.NotNil(t, m.StartTime())
}

func TestStateMachineIgnoresUnknownStatus(t *testing.T) {
	m := NewStateMachine()

	_, advanced := m.Observe(snapshot(models.SessionStatus("PAUSED")))
	require.False(t, advanced)
	require.Equal(t, models.SessionStatusLobby, m.Status())

	_, advanced = m.Observe(nil)
	require.False(t, advanced)
}
