package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tandem/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("goal_not_found")
	ErrNotOwner         = errors.New("not_goal_owner")
	ErrNoPartner        = errors.New("no_partner")
)

type CreateRequest struct {
	OwnerID string `json:"-"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Goal, error)
	List(ctx context.Context, userID string, page pagination.Pagination) ([]Goal, *pagination.PageInfo, error)

	// Share marks the goal as shared with the owner's current partner.
	// Requires a live partnership.
	Share(ctx context.Context, userID string, goalID snowflake.ID) (*Goal, error)

	Complete(ctx context.Context, userID string, goalID snowflake.ID) (*Goal, error)

	// DetachShared unshares every goal between the two users. It runs on the
	// caller's transaction handle so unlinking can include it atomically.
	DetachShared(ctx context.Context, tx *gorm.DB, userA, userB string) error
}
