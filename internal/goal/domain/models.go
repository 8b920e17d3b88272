package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Goal is owned by one account and optionally shared with that account's
// partner. PartnerID is a snapshot of the partner at share time; unlinking
// clears it together with IsShared.
type Goal struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID     string       `gorm:"size:64;not null;index" json:"owner_id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Notes       string       `gorm:"type:text" json:"notes,omitempty"`
	IsShared    bool         `gorm:"not null;default:false" json:"is_shared"`
	PartnerID   *string      `gorm:"size:64;index" json:"partner_id,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Goal) TableName() string { return "goals" }

func (g *Goal) IsCompleted() bool { return g.CompletedAt != nil }
