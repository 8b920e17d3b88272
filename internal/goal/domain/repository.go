package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tandem/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, goal *Goal) error

	// FindByID returns (nil, nil) when the goal does not exist.
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Goal, error)

	// ListVisible returns the user's own goals plus goals shared with them,
	// newest first. It fetches limit+1 rows past the cursor so the caller can
	// tell whether another page exists.
	ListVisible(ctx context.Context, tx *gorm.DB, userID string, cursor *pagination.Cursor, limit int) ([]Goal, error)

	Save(ctx context.Context, tx *gorm.DB, goal *Goal) error

	// DetachSharedBetween clears the sharing state of every goal shared
	// between the two users, in both ownership directions.
	DetachSharedBetween(ctx context.Context, tx *gorm.DB, userA, userB string) error
}
