package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserIdentity 代表使用者在某個 SSO 提供者的身份
// Identity 是提供者核發的識別字串（OIDC 的 sub）
type UserIdentity struct {
	gorm.Model

	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SsoProviderID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_identity_provider_user,where:deleted_at IS NULL;uniqueIndex:idx_user_identity_provider_identity,where:deleted_at IS NULL;not null;<-:create"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_identity_provider_user,where:deleted_at IS NULL;not null;<-:create"`
	Identity      string    `gorm:"type:text;uniqueIndex:idx_user_identity_provider_identity,where:deleted_at IS NULL;not null;<-:create"`

	SsoProvider *SsoProvider `gorm:"foreignKey:SsoProviderID"`
	User        *User        `gorm:"foreignKey:UserID"`
}

func (i *UserIdentity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
