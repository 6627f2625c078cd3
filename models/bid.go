package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid 代表作品的出價紀錄
// 紀錄一旦建立就不會被修改或刪除
type Bid struct {
	gorm.Model

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ArtworkID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	BidAmount int64     `gorm:"type:bigint;not null;<-:create"`

	// 外鍵關聯
	User    User
	Artwork Artwork
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
