package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/pukagames/moonrace/go/internal/feed"
	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ListenerConfig holds settings for the LISTEN/NOTIFY relay.
type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to sweep for missed changes
	PingInterval     time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    NotifyChannel,
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// EventPublisher is where the relay forwards observed changes — in
// production the NATS feed publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType feed.EventType, sess *models.Session) error
}

// Listener bridges Postgres NOTIFY into the change feed. Each notification
// carries only the session id and event label; the full row is re-read and
// published, so subscribers always receive a complete current record. A
// periodic fallback sweep re-publishes recently updated rows to cover lost
// notifications — duplicates are fine, delivery is at-least-once.
type Listener struct {
	pool      *pgxpool.Pool
	listener  *pq.Listener
	publisher EventPublisher
	cfg       ListenerConfig
}

func NewListener(pool *pgxpool.Pool, publisher EventPublisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for session changes")

	return &Listener{
		pool:      pool,
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("session change relay started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session change relay shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost; pq reconnects
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.sweepRecent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to sweep recent changes")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("listener ping failed")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

func (l *Listener) handleNotification(ctx context.Context, raw string) error {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("malformed notification payload: %w", err)
	}

	sess, err := l.loadSession(ctx, payload.SessionID)
	if err != nil {
		return err
	}
	return l.publisher.Publish(ctx, payload.Event, sess)
}

// sweepRecent republishes every session updated within the fallback window.
func (l *Listener) sweepRecent(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM duel_sessions
		WHERE updated_at > now() - make_interval(secs => $1)`,
		l.cfg.FallbackInterval.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		if err := l.publisher.Publish(ctx, feed.EventTypeSessionUpdated, sess); err != nil {
			log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to republish session")
		}
	}
	return rows.Err()
}

func (l *Listener) loadSession(ctx context.Context, id string) (*models.Session, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM duel_sessions
		WHERE id = $1`,
		id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return sess, nil
}
