package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertToken(ctx context.Context, db *gorm.DB, invite *TokenInvite) error
	InsertCode(ctx context.Context, db *gorm.DB, code *PartnerCode) error

	// FindActiveToken returns nil without error when no unconsumed,
	// unexpired invitation carries the token. Expired and consumed rows are
	// indistinguishable from absent ones by design.
	FindActiveToken(ctx context.Context, db *gorm.DB, token string, now time.Time) (*TokenInvite, error)
	FindActiveCode(ctx context.Context, db *gorm.DB, code string, now time.Time) (*PartnerCode, error)

	FindActiveTokenByInviter(ctx context.Context, db *gorm.DB, inviterID string, now time.Time) (*TokenInvite, error)
	FindActiveCodeByInviter(ctx context.Context, db *gorm.DB, inviterID string, now time.Time) (*PartnerCode, error)

	// DeletePendingByInviter removes all unconsumed invitations and codes
	// issued by the inviter, enforcing at-most-one-active.
	DeletePendingByInviter(ctx context.Context, db *gorm.DB, inviterID string) error

	// ConsumeToken and ConsumeCode are compare-and-set: they flip the
	// consumed flag only if it is still unset and report whether this
	// caller won.
	ConsumeToken(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ConsumeCode(ctx context.Context, db *gorm.DB, code string) (bool, error)
}
