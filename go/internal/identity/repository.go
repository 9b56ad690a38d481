package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pukagames/moonrace/go/internal/models"
)

// ErrProfileNotFound is returned when no profile exists for an id.
var ErrProfileNotFound = errors.New("profile not found")

// Repository implements profile data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, username, full_name, coins, is_premium, created_at, updated_at`

// GetProfile retrieves a profile by its stable external id.
func (r *Repository) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1`,
		id,
	)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// CreateProfile inserts a profile. Concurrent get-or-create calls for the
// same id collapse onto one row; the stored record always wins.
func (r *Repository) CreateProfile(ctx context.Context, req CreateProfileRequest) (*models.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, username, full_name, coins)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING `+profileColumns,
		req.ID, req.Username, req.FullName, req.Coins,
	)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// AdjustCoins atomically adds delta to the stored balance and returns the
// new value. The addition happens against the current stored balance inside
// the UPDATE, so concurrent rewards cannot lose updates.
func (r *Repository) AdjustCoins(ctx context.Context, id int64, delta int64) (int64, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles
		SET coins = coins + $2, updated_at = now()
		WHERE id = $1
		RETURNING coins`,
		id, delta,
	)
	var coins int64
	if err := row.Scan(&coins); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to adjust coins: %w", err)
	}
	return coins, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.Coins,
		&p.IsPremium,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
