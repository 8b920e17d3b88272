package domain

import "time"

// Account is the minimal profile record for an authenticated user. The ID is
// the subject issued by the external auth provider. PartnerID is the one half
// of the symmetric partnership edge; it is mutated only by the pairing
// service, never directly.
type Account struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName        string    `gorm:"size:120" json:"display_name"`
	OnboardingComplete bool      `gorm:"not null;default:false" json:"onboarding_complete"`
	PartnerID          *string   `gorm:"size:64;index" json:"partner_id,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// HasPartner reports whether the account currently points at a partner.
func (a *Account) HasPartner() bool {
	return a != nil && a.PartnerID != nil && *a.PartnerID != ""
}

// PartneredWith reports whether the account points at the given partner.
func (a *Account) PartneredWith(id string) bool {
	return a.HasPartner() && *a.PartnerID == id
}
