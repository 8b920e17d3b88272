package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/account/repository"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Account{}))

	return &Service{
		db:     conn,
		log:    zap.NewNop(),
		clock:  clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		repo:   repository.Provide(),
		policy: domain.DefaultRetryPolicy(),
		sleep:  func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
}

func TestEnsureProfileCreatesMissingAccount(t *testing.T) {
	svc := newTestService(t)

	account, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, "user-a", account.ID)
	require.False(t, account.OnboardingComplete)
	require.False(t, account.HasPartner())
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)

	second, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, svc.db.Model(&domain.Account{}).Where("id = ?", "user-a").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnsureProfileRejectsEmptyID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.EnsureProfile(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrInvalidUserID)
}

// racingRepo simulates losing the create race: the first insert hits the
// unique constraint, and the row becomes visible on the next read.
type racingRepo struct {
	domain.Repository
	record  *domain.Account
	inserts int
	reads   int
}

func (r *racingRepo) FindByID(ctx context.Context, dbConn *gorm.DB, id string) (*domain.Account, error) {
	r.reads++
	if r.reads > 1 {
		return r.record, nil
	}
	return nil, nil
}

func (r *racingRepo) Insert(ctx context.Context, dbConn *gorm.DB, account *domain.Account) error {
	r.inserts++
	return errors.New("duplicate key value violates unique constraint \"accounts_pkey\"")
}

func TestEnsureProfileRecoversFromInsertRace(t *testing.T) {
	svc := newTestService(t)

	var slept []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	repo := &racingRepo{record: &domain.Account{ID: "user-a"}}
	svc.repo = repo

	account, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, "user-a", account.ID)
	require.Equal(t, 1, repo.inserts)
	require.Equal(t, []time.Duration{300 * time.Millisecond}, slept)
}

// failingRepo never yields a row and always conflicts on insert.
type failingRepo struct {
	domain.Repository
	inserts int
}

func (r *failingRepo) FindByID(ctx context.Context, dbConn *gorm.DB, id string) (*domain.Account, error) {
	return nil, nil
}

func (r *failingRepo) Insert(ctx context.Context, dbConn *gorm.DB, account *domain.Account) error {
	r.inserts++
	return errors.New("UNIQUE constraint failed: accounts.id")
}

func TestEnsureProfileExhaustsRetries(t *testing.T) {
	svc := newTestService(t)

	var slept []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	repo := &failingRepo{}
	svc.repo = repo

	_, err := svc.EnsureProfile(context.Background(), "user-a")
	require.ErrorIs(t, err, domain.ErrProfileCreation)
	require.Equal(t, 3, repo.inserts)
	require.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond}, slept)
}

func TestEnsureProfileStopsWhenContextCancelled(t *testing.T) {
	svc := newTestService(t)
	svc.sleep = sleepContext
	svc.repo = &failingRepo{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EnsureProfile(ctx, "user-a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestUpdateDisplayName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)

	account, err := svc.UpdateDisplayName(context.Background(), domain.UpdateDisplayNameRequest{
		UserID:      "user-a",
		DisplayName: "  Alex  ",
	})
	require.NoError(t, err)
	require.Equal(t, "Alex", account.DisplayName)

	_, err = svc.UpdateDisplayName(context.Background(), domain.UpdateDisplayNameRequest{UserID: "user-a"})
	require.ErrorIs(t, err, domain.ErrInvalidDisplayName)
}

func TestCompleteOnboarding(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.EnsureProfile(context.Background(), "user-a")
	require.NoError(t, err)

	account, err := svc.CompleteOnboarding(context.Background(), "user-a")
	require.NoError(t, err)
	require.True(t, account.OnboardingComplete)
}

func TestGetMissingAccount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
