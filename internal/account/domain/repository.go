package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindByID returns nil without error when the account does not exist.
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Account, error)
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	UpdateDisplayName(ctx context.Context, db *gorm.DB, id, displayName string) error
	SetOnboardingComplete(ctx context.Context, db *gorm.DB, id string) error
}
