package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tandem/internal/goal/domain"
	"github.com/smallbiznis/tandem/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, goal *domain.Goal) error {
	return tx.WithContext(ctx).Create(goal).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Goal, error) {
	var goal domain.Goal
	err := tx.WithContext(ctx).Where("id = ?", id).First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *repo) ListVisible(ctx context.Context, tx *gorm.DB, userID string, cursor *pagination.Cursor, limit int) ([]domain.Goal, error) {
	q := tx.WithContext(ctx).
		Where("owner_id = ? OR (is_shared = ? AND partner_id = ?)", userID, true, userID).
		Order("created_at desc, id desc").
		Limit(limit + 1)

	if cursor != nil && cursor.CreatedAt != "" {
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after, after, cursor.ID)
	}

	var goals []domain.Goal
	if err := q.Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, goal *domain.Goal) error {
	return tx.WithContext(ctx).Save(goal).Error
}

func (r *repo) DetachSharedBetween(ctx context.Context, tx *gorm.DB, userA, userB string) error {
	return tx.WithContext(ctx).
		Model(&domain.Goal{}).
		Where("is_shared = ? AND ((owner_id = ? AND partner_id = ?) OR (owner_id = ? AND partner_id = ?))",
			true, userA, userB, userB, userA).
		Updates(map[string]any{
			"is_shared":  false,
			"partner_id": nil,
		}).Error
}
