package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tandem/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertToken(ctx context.Context, db *gorm.DB, invite *domain.TokenInvite) error {
	return db.WithContext(ctx).Create(invite).Error
}

func (r *repo) InsertCode(ctx context.Context, db *gorm.DB, code *domain.PartnerCode) error {
	return db.WithContext(ctx).Create(code).Error
}

func (r *repo) FindActiveToken(ctx context.Context, db *gorm.DB, token string, now time.Time) (*domain.TokenInvite, error) {
	var invite domain.TokenInvite
	err := db.WithContext(ctx).
		Where("token = ? AND is_accepted = ? AND expires_at > ?", token, false, now).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repo) FindActiveCode(ctx context.Context, db *gorm.DB, code string, now time.Time) (*domain.PartnerCode, error) {
	var record domain.PartnerCode
	err := db.WithContext(ctx).
		Where("code = ? AND is_used = ? AND (expires_at IS NULL OR expires_at > ?)", code, false, now).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) FindActiveTokenByInviter(ctx context.Context, db *gorm.DB, inviterID string, now time.Time) (*domain.TokenInvite, error) {
	var invite domain.TokenInvite
	err := db.WithContext(ctx).
		Where("inviter_id = ? AND is_accepted = ? AND expires_at > ?", inviterID, false, now).
		Order("created_at desc").
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repo) FindActiveCodeByInviter(ctx context.Context, db *gorm.DB, inviterID string, now time.Time) (*domain.PartnerCode, error) {
	var record domain.PartnerCode
	err := db.WithContext(ctx).
		Where("inviter_id = ? AND is_used = ? AND (expires_at IS NULL OR expires_at > ?)", inviterID, false, now).
		Order("created_at desc").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) DeletePendingByInviter(ctx context.Context, db *gorm.DB, inviterID string) error {
	if err := db.WithContext(ctx).
		Where("inviter_id = ? AND is_accepted = ?", inviterID, false).
		Delete(&domain.TokenInvite{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("inviter_id = ? AND is_used = ?", inviterID, false).
		Delete(&domain.PartnerCode{}).Error
}

func (r *repo) ConsumeToken(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.TokenInvite{}).
		Where("id = ? AND is_accepted = ?", id, false).
		Update("is_accepted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ConsumeCode(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.PartnerCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Update("is_used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
