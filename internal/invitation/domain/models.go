package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind discriminates the two redemption mechanisms. Short codes are the
// primary mechanism; token links are the legacy path kept for compatibility.
type Kind string

const (
	KindCode  Kind = "code"
	KindToken Kind = "token"
)

// TokenInvite is a link-style invitation. Always expires.
type TokenInvite struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	InviterID  string       `gorm:"size:64;not null;index" json:"inviter_id"`
	Token      string       `gorm:"size:32;uniqueIndex;not null" json:"token"`
	IsAccepted bool         `gorm:"not null;default:false" json:"is_accepted"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt  time.Time    `gorm:"not null;index" json:"expires_at"`
}

func (TokenInvite) TableName() string { return "invitations" }

// PartnerCode is a short typeable invitation. ExpiresAt nil means the code
// never expires; whether codes expire at all is a deployment choice.
type PartnerCode struct {
	Code      string     `gorm:"primaryKey;size:16" json:"code"`
	InviterID string     `gorm:"size:64;not null;index" json:"inviter_id"`
	IsUsed    bool       `gorm:"not null;default:false" json:"is_used"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
}

func (PartnerCode) TableName() string { return "partner_codes" }

// Invite is the unified view over both mechanisms, shared by every caller
// past the lookup boundary.
type Invite struct {
	Kind      Kind       `json:"kind"`
	InviterID string     `json:"inviter_id"`
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// TokenID references the invitations row; zero for codes.
	TokenID snowflake.ID `json:"-"`
}

// CreatedInvite is what the inviter gets back: a shareable URL, the token it
// embeds, and a short code to read aloud.
type CreatedInvite struct {
	Token         string     `json:"token"`
	Code          string     `json:"code"`
	URL           string     `json:"url"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
}
