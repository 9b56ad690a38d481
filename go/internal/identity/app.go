package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pukagames/moonrace/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// WelcomeBonus is credited once when a profile is first created.
	WelcomeBonus = 100
	// WinReward is credited to the winner of a duel.
	WinReward = 50
)

// ProfilesRepository defines what the app layer needs from the repository.
type ProfilesRepository interface {
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	CreateProfile(ctx context.Context, req CreateProfileRequest) (*models.Profile, error)
	AdjustCoins(ctx context.Context, id int64, delta int64) (int64, error)
}

// App implements the identity provider: a stable numeric id and display
// profile per end user, with get-or-create semantics.
type App struct {
	repo ProfilesRepository
}

func NewApp(repo ProfilesRepository) *App {
	return &App{repo: repo}
}

// GetOrCreateProfile resolves the profile for an authenticated external
// user, creating it with the welcome bonus on first sight. Idempotent:
// repeated calls for the same user return the stored profile unchanged.
func (a *App) GetOrCreateProfile(ctx context.Context, user ExternalUser) (*models.Profile, error) {
	if user.ID == 0 {
		return nil, fmt.Errorf("external user id is required")
	}

	profile, err := a.repo.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	req := CreateProfileRequest{
		ID:       user.ID,
		FullName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		Coins:    WelcomeBonus,
	}
	if user.Username != "" {
		username := user.Username
		req.Username = &username
	}

	profile, err = a.repo.CreateProfile(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	log.Info().
		Int64("player_id", profile.ID).
		Str("full_name", profile.FullName).
		Msg("profile created")
	return profile, nil
}

// AdjustBalance atomically applies delta to a player's coin balance and
// returns the new value.
func (a *App) AdjustBalance(ctx context.Context, playerID int64, delta int64) (int64, error) {
	coins, err := a.repo.AdjustCoins(ctx, playerID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return coins, nil
}

// AwardWin credits the duel winner's reward.
func (a *App) AwardWin(ctx context.Context, playerID int64) (int64, error) {
	coins, err := a.AdjustBalance(ctx, playerID, WinReward)
	if err != nil {
		return 0, err
	}
	log.Info().
		Int64("player_id", playerID).
		Int64("coins", coins).
		Msg("win reward credited")
	return coins, nil
}
