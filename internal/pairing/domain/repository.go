package domain

import (
	"context"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"gorm.io/gorm"
)

// Repository is the only code allowed to write accounts.partner_id. Both
// mutations are guarded updates: they report whether the row matched, and a
// miss means the guard saw a different pointer than expected.
type Repository interface {
	// Find returns (nil, nil) when the account does not exist.
	Find(ctx context.Context, tx *gorm.DB, userID string) (*accountdomain.Account, error)

	// FindPartnerOf returns the account whose partner_id points at userID,
	// or (nil, nil). Used to discover half-broken edges.
	FindPartnerOf(ctx context.Context, tx *gorm.DB, userID string) (*accountdomain.Account, error)

	// SetPartner sets partner_id only when it is currently NULL.
	SetPartner(ctx context.Context, tx *gorm.DB, userID, partnerID string) (bool, error)

	// ClearPartner clears partner_id only when it currently equals partnerID.
	ClearPartner(ctx context.Context, tx *gorm.DB, userID, partnerID string) (bool, error)
}
