package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/tandem/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) UpdateDisplayName(ctx context.Context, db *gorm.DB, id, displayName string) error {
	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("display_name", displayName).Error
}

func (r *repo) SetOnboardingComplete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("onboarding_complete", true).Error
}
