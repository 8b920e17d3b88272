package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/internal/config"
	"github.com/smallbiznis/tandem/internal/invitation/domain"
	"github.com/smallbiznis/tandem/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxIssueAttempts bounds regeneration on unique-constraint collisions.
// With a 36^12 token space a second collision in a row means the random
// source is broken, not unlucky.
const maxIssueAttempts = 5

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Cfg      config.Config
	Repo     domain.Repository
	Accounts accountdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	cfg      config.Config
	repo     domain.Repository
	accounts accountdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invitation.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		cfg:      p.Cfg,
		repo:     p.Repo,
		accounts: p.Accounts,
	}
}

func (s *Service) Create(ctx context.Context, inviterID string) (*domain.CreatedInvite, error) {
	account, err := s.accounts.EnsureProfile(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	if account.HasPartner() {
		return nil, domain.ErrAlreadyPartnered
	}

	return s.issue(ctx, account.ID)
}

func (s *Service) Regenerate(ctx context.Context, inviterID string) (*domain.CreatedInvite, error) {
	account, err := s.accounts.EnsureProfile(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	if account.HasPartner() {
		return nil, domain.ErrAlreadyPartnered
	}

	now := s.clock.Now()
	token, err := s.repo.FindActiveTokenByInviter(ctx, s.db, account.ID, now)
	if err != nil {
		return nil, err
	}
	code, err := s.repo.FindActiveCodeByInviter(ctx, s.db, account.ID, now)
	if err != nil {
		return nil, err
	}
	if token == nil && code == nil {
		return nil, domain.ErrNoActiveInvitation
	}

	return s.issue(ctx, account.ID)
}

func (s *Service) Active(ctx context.Context, inviterID string) (*domain.CreatedInvite, error) {
	now := s.clock.Now()
	token, err := s.repo.FindActiveTokenByInviter(ctx, s.db, inviterID, now)
	if err != nil {
		return nil, err
	}
	code, err := s.repo.FindActiveCodeByInviter(ctx, s.db, inviterID, now)
	if err != nil {
		return nil, err
	}
	if token == nil && code == nil {
		return nil, domain.ErrNoActiveInvitation
	}

	created := &domain.CreatedInvite{}
	if token != nil {
		created.Token = token.Token
		created.URL = domain.InviteURL(s.cfg.BaseURL, token.Token)
		created.ExpiresAt = token.ExpiresAt
	}
	if code != nil {
		created.Code = code.Code
		created.CodeExpiresAt = code.ExpiresAt
	}
	return created, nil
}

func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Invite, error) {
	token = domain.Normalize(token)
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	record, err := s.repo.FindActiveToken(ctx, s.db, token, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	expiresAt := record.ExpiresAt
	return &domain.Invite{
		Kind:      domain.KindToken,
		InviterID: record.InviterID,
		Value:     record.Token,
		ExpiresAt: &expiresAt,
		TokenID:   record.ID,
	}, nil
}

func (s *Service) LookupByCode(ctx context.Context, code string) (*domain.Invite, error) {
	code = domain.Normalize(code)
	if code == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	record, err := s.repo.FindActiveCode(ctx, s.db, code, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	return &domain.Invite{
		Kind:      domain.KindCode,
		InviterID: record.InviterID,
		Value:     record.Code,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Lookup resolves a presented value, codes before tokens.
func (s *Service) Lookup(ctx context.Context, value string) (*domain.Invite, error) {
	invite, err := s.LookupByCode(ctx, value)
	if err == nil {
		return invite, nil
	}
	if err != domain.ErrInvalidOrExpiredToken {
		return nil, err
	}
	return s.LookupByToken(ctx, value)
}

func (s *Service) Consume(ctx context.Context, invite *domain.Invite) error {
	if invite == nil {
		return domain.ErrInvalidOrExpiredToken
	}

	var (
		won bool
		err error
	)
	switch invite.Kind {
	case domain.KindCode:
		won, err = s.repo.ConsumeCode(ctx, s.db, invite.Value)
	case domain.KindToken:
		won, err = s.repo.ConsumeToken(ctx, s.db, invite.TokenID)
	default:
		return domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return err
	}
	if !won {
		// Another redeemer flipped the flag first.
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}

func (s *Service) Cleanup(ctx context.Context, userID string) {
	if err := s.repo.DeletePendingByInviter(ctx, s.db, userID); err != nil {
		// A dangling pending invitation is harmless; it expires or is
		// superseded on the next issue. Failing the parent operation over
		// cleanup would be disproportionate.
		s.log.Warn("invitation cleanup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *Service) issue(ctx context.Context, inviterID string) (*domain.CreatedInvite, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.Invite.TokenTTL)
	var codeExpiresAt *time.Time
	if s.cfg.Invite.CodeTTL > 0 {
		t := now.Add(s.cfg.Invite.CodeTTL)
		codeExpiresAt = &t
	}

	var lastErr error
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := domain.NewValue(s.cfg.Invite.TokenLength)
		if err != nil {
			return nil, err
		}
		code, err := domain.NewValue(s.cfg.Invite.CodeLength)
		if err != nil {
			return nil, err
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.DeletePendingByInviter(ctx, tx, inviterID); err != nil {
				return err
			}
			if err := s.repo.InsertToken(ctx, tx, &domain.TokenInvite{
				ID:        s.genID.Generate(),
				InviterID: inviterID,
				Token:     token,
				CreatedAt: now,
				ExpiresAt: expiresAt,
			}); err != nil {
				return err
			}
			return s.repo.InsertCode(ctx, tx, &domain.PartnerCode{
				Code:      code,
				InviterID: inviterID,
				CreatedAt: now,
				ExpiresAt: codeExpiresAt,
			})
		})
		if err == nil {
			return &domain.CreatedInvite{
				Token:         token,
				Code:          code,
				URL:           domain.InviteURL(s.cfg.BaseURL, token),
				ExpiresAt:     expiresAt,
				CodeExpiresAt: codeExpiresAt,
			}, nil
		}
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("invite value collision, regenerating",
				zap.String("inviter_id", inviterID),
				zap.Int("attempt", attempt+1),
			)
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("issue invitation: %w", lastErr)
}
