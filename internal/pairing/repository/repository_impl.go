package repository

import (
	"context"
	"errors"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/pairing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, tx *gorm.DB, userID string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := tx.WithContext(ctx).Where("id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindPartnerOf(ctx context.Context, tx *gorm.DB, userID string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := tx.WithContext(ctx).Where("partner_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) SetPartner(ctx context.Context, tx *gorm.DB, userID, partnerID string) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND partner_id IS NULL", userID).
		Update("partner_id", partnerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ClearPartner(ctx context.Context, tx *gorm.DB, userID, partnerID string) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND partner_id = ?", userID, partnerID).
		Update("partner_id", nil)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
