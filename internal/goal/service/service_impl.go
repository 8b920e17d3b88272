package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/internal/goal/domain"
	"github.com/smallbiznis/tandem/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Repo     domain.Repository
	Accounts accountdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	repo     domain.Repository
	accounts accountdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("goal.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		repo:     p.Repo,
		accounts: p.Accounts,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Goal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	if _, err := s.accounts.EnsureProfile(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	goal := &domain.Goal{
		ID:        s.genID.Generate(),
		OwnerID:   req.OwnerID,
		Title:     title,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *Service) List(ctx context.Context, userID string, page pagination.Pagination) ([]domain.Goal, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var cursor *pagination.Cursor
	if page.PageToken != "" {
		decoded, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	goals, err := s.repo.ListVisible(ctx, s.db, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	refs := make([]*domain.Goal, len(goals))
	for i := range goals {
		refs[i] = &goals[i]
	}
	info := pagination.BuildCursorPageInfo(refs, int32(limit), func(g *domain.Goal) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        g.ID.String(),
			CreatedAt: g.CreatedAt.Format(time.RFC3339Nano),
		})
		return token
	})
	if len(goals) > limit {
		goals = goals[:limit]
	}
	return goals, info, nil
}

func (s *Service) Share(ctx context.Context, userID string, goalID snowflake.ID) (*domain.Goal, error) {
	goal, err := s.owned(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.HasPartner() {
		return nil, domain.ErrNoPartner
	}

	goal.IsShared = true
	goal.PartnerID = account.PartnerID
	goal.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *Service) Complete(ctx context.Context, userID string, goalID snowflake.ID) (*domain.Goal, error) {
	goal, err := s.owned(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if goal.IsCompleted() {
		return goal, nil
	}
	now := s.clock.Now()
	goal.CompletedAt = &now
	goal.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *Service) DetachShared(ctx context.Context, tx *gorm.DB, userA, userB string) error {
	return s.repo.DetachSharedBetween(ctx, tx, userA, userB)
}

func (s *Service) owned(ctx context.Context, userID string, goalID snowflake.ID) (*domain.Goal, error) {
	goal, err := s.repo.FindByID(ctx, s.db, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, domain.ErrNotFound
	}
	if goal.OwnerID != userID {
		return nil, domain.ErrNotOwner
	}
	return goal, nil
}
