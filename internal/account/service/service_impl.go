package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository

	policy domain.RetryPolicy
	sleep  domain.Sleeper
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("account.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		policy: domain.DefaultRetryPolicy(),
		sleep:  sleepContext,
	}
}

// EnsureProfile reads the account and creates it when missing. A duplicate-key
// conflict means another in-flight request created the row first; back off and
// re-read instead of failing.
func (s *Service) EnsureProfile(ctx context.Context, userID string) (*domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	var lastErr error
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.policy.Wait(attempt-1)); err != nil {
				return nil, err
			}
		}

		account, err := s.repo.FindByID(ctx, s.db, userID)
		if err != nil {
			lastErr = err
			continue
		}
		if account != nil {
			return account, nil
		}

		now := s.clock.Now()
		account = &domain.Account{
			ID:        userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.repo.Insert(ctx, s.db, account)
		if err == nil {
			return account, nil
		}
		if db.IsDuplicateKeyErr(err) {
			// Lost the race; the winner's row will be visible on re-read.
			s.log.Debug("profile insert raced, retrying",
				zap.String("user_id", userID),
				zap.Int("attempt", attempt+1),
			)
			lastErr = err
			continue
		}
		lastErr = err
	}

	s.log.Error("profile creation exhausted retries",
		zap.String("user_id", userID),
		zap.Int("max_attempts", s.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return nil, domain.ErrProfileCreation
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	account, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) UpdateDisplayName(ctx context.Context, req domain.UpdateDisplayNameRequest) (*domain.Account, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, domain.ErrInvalidDisplayName
	}

	if err := s.repo.UpdateDisplayName(ctx, s.db, userID, displayName); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) CompleteOnboarding(ctx context.Context, userID string) (*domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	if err := s.repo.SetOnboardingComplete(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
