package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pukagames/moonrace/go/internal/feed"
	"github.com/rs/zerolog/log"
)

// EventConsumer subscribes to the session change feed and hands every event
// to the connection manager for fan-out to WebSocket clients. It is the
// bridge the browser client uses instead of a direct store subscription.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	sub               *nats.Subscription
}

func NewEventConsumer(cm *ConnectionManager, nc *nats.Conn) *EventConsumer {
	return &EventConsumer{
		connectionManager: cm,
		nc:                nc,
	}
}

// Start subscribes to every session's events.
func (ec *EventConsumer) Start() error {
	sub, err := ec.nc.Subscribe(feed.WildcardSubject, ec.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}
	ec.sub = sub

	log.Info().
		Str("subject", feed.WildcardSubject).
		Msg("gateway consuming session events")
	return nil
}

// Stop detaches from the change feed.
func (ec *EventConsumer) Stop() {
	if ec.sub != nil {
		if err := ec.sub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Msg("failed to unsubscribe gateway consumer")
		}
		ec.sub = nil
	}
}

func (ec *EventConsumer) handleMessage(msg *nats.Msg) {
	var event feed.SessionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("malformed session event")
		return
	}

	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", event.SessionID).Msg("invalid session id in event")
		return
	}

	ec.connectionManager.BroadcastToSession(sessionID, &event)
}
