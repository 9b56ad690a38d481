package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS duel_sessions (
		id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		host_id         bigint NOT NULL,
		guest_id        bigint,
		status          text NOT NULL DEFAULT 'LOBBY',
		host_points     integer NOT NULL DEFAULT 0 CHECK (host_points >= 0),
		guest_points    integer NOT NULL DEFAULT 0 CHECK (guest_points >= 0),
		start_time      timestamptz,
		winner_id       bigint,
		next_session_id uuid,
		created_at      timestamptz NOT NULL DEFAULT now(),
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS duel_sessions_updated_at_idx ON duel_sessions (updated_at)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id         bigint PRIMARY KEY,
		username   text,
		full_name  text NOT NULL DEFAULT '',
		coins      bigint NOT NULL DEFAULT 0,
		is_premium boolean NOT NULL DEFAULT false,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the idempotent schema statements.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
