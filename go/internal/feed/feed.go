// Package feed carries session change notifications over NATS. The Postgres
// listener publishes one SessionEvent per observed write; clients and the
// gateway subscribe per session id. Delivery is at-least-once and unordered
// against other observers' clocks, which is exactly the contract the
// protocol layer is built to tolerate.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/pukagames/moonrace/go/internal/store"
	"github.com/rs/zerolog/log"
)

// ConnConfig holds NATS connection settings.
type ConnConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Connect dials NATS with reconnect handling and logging.
func Connect(cfg ConnConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Publisher writes session events to the per-session subject.
type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

func (p *Publisher) Publish(ctx context.Context, eventType EventType, sess *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evt := SessionEvent{
		ID:        uuid.New().String(),
		SessionID: sess.ID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Session:   sess,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}
	if err := p.nc.Publish(Subject(sess.ID), data); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	log.Debug().
		Str("session_id", evt.SessionID).
		Str("event_type", string(eventType)).
		Msg("published session event")
	return nil
}

// Subscriber adapts a NATS subscription to the store's Subscribe contract.
type Subscriber struct {
	nc *nats.Conn
}

func NewSubscriber(nc *nats.Conn) *Subscriber {
	return &Subscriber{nc: nc}
}

func (s *Subscriber) Subscribe(sessionID uuid.UUID, fn store.ChangeHandler) (store.Unsubscribe, error) {
	sub, err := s.nc.Subscribe(Subject(sessionID), func(msg *nats.Msg) {
		var evt SessionEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("malformed session event")
			return
		}
		if evt.Session == nil {
			return
		}
		fn(evt.Session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Subject(sessionID), err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("unsubscribe failed")
		}
	}, nil
}
