package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod 代表出價時留下的付款與聯絡資料
// 只儲存卡號的最後4碼，完整卡號不落地
type PaymentMethod struct {
	gorm.Model

	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	CardNumberLast4 string    `gorm:"type:varchar(4);not null;<-:create"`
	Email           string    `gorm:"type:varchar(255);not null;<-:create"`
	Phone           string    `gorm:"type:varchar(32);not null;<-:create"`

	// 外鍵關聯
	User User
}

func (p *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
