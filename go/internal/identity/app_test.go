package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pukagames/moonrace/go/internal/models"
)

// fakeRepo is an in-memory ProfilesRepository for app-layer tests.
type fakeRepo struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
	creates  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[int64]*models.Profile)}
}

func (r *fakeRepo) GetProfile(_ context.Context, id int64) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) CreateProfile(_ context.Context, req CreateProfileRequest) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if p, ok := r.profiles[req.ID]; ok {
		clone := *p
		return &clone, nil
	}
	now := time.Now()
	p := &models.Profile{
		ID:        req.ID,
		Username:  req.Username,
		FullName:  req.FullName,
		Coins:     req.Coins,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.profiles[req.ID] = p
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) AdjustCoins(_ context.Context, id int64, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return 0, ErrProfileNotFound
	}
	p.Coins += delta
	p.UpdatedAt = time.Now()
	return p.Coins, nil
}

func TestGetOrCreateProfileGrantsWelcomeBonus(t *testing.T) {
	app := NewApp(newFakeRepo())

	profile, err := app.GetOrCreateProfile(context.Background(), ExternalUser{
		ID:        42,
		Username:  "racer",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), profile.ID)
	require.Equal(t, "Ada Lovelace", profile.FullName)
	require.NotNil(t, profile.Username)
	require.Equal(t, "racer", *profile.Username)
	require.Equal(t, int64(WelcomeBonus), profile.Coins)
}

func TestGetOrCreateProfileIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	user := ExternalUser{ID: 7, FirstName: "Grace"}

	first, err := app.GetOrCreateProfile(context.Background(), user)
	require.NoError(t, err)

	// Repeated resolution must not create again or re-credit the bonus.
	second, err := app.GetOrCreateProfile(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int64(WelcomeBonus), second.Coins)
	require.Equal(t, 1, repo.creates)
}

func TestGetOrCreateProfileRequiresID(t *testing.T) {
	app := NewApp(newFakeRepo())

	_, err := app.GetOrCreateProfile(context.Background(), ExternalUser{FirstName: "Nobody"})
	require.Error(t, err)
}

func TestGetOrCreateProfileOmitsEmptyUsername(t *testing.T) {
	app := NewApp(newFakeRepo())

	profile, err := app.GetOrCreateProfile(context.Background(), ExternalUser{ID: 9, FirstName: "Solo"})
	require.NoError(t, err)
	require.Nil(t, profile.Username)
	require.Equal(t, "Solo", profile.FullName)
}

func TestAwardWinCreditsReward(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)

	_, err := app.GetOrCreateProfile(context.Background(), ExternalUser{ID: 11, FirstName: "Win"})
	require.NoError(t, err)

	coins, err := app.AwardWin(context.Background(), 11)
	require.NoError(t, err)
	require.Equal(t, int64(WelcomeBonus+WinReward), coins)
}

func TestAdjustBalanceIsCumulative(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)

	_, err := app.GetOrCreateProfile(context.Background(), ExternalUser{ID: 3, FirstName: "Sum"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.AdjustBalance(context.Background(), 3, 5)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	profile, err := app.GetOrCreateProfile(context.Background(), ExternalUser{ID: 3, FirstName: "Sum"})
	require.NoError(t, err)
	require.Equal(t, int64(WelcomeBonus+50), profile.Coins)
}

func TestAdjustBalanceUnknownPlayer(t *testing.T) {
	app := NewApp(newFakeRepo())

	_, err := app.AdjustBalance(context.Background(), 404, 10)
	require.Error(t, err)
}
