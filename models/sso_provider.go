package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SSO 提供者名稱；internal 代表站內的 email/密碼登入
const (
	SsoProviderInternal = "internal"
	SsoProviderGoogle   = "google"
	SsoProviderGitHub   = "github"
)

// SsoProvider 代表支援的登入提供者
type SsoProvider struct {
	gorm.Model

	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:text;not null;unique;<-:create"`
}

func (p *SsoProvider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
