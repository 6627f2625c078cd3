package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification 是通知 outbox 的一列
// 由通知 worker 從 Redis stream 寫入，再由外部投遞程序送出
type Notification struct {
	gorm.Model

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Recipient string    `gorm:"type:varchar(255);not null;<-:create"`
	Subject   string    `gorm:"type:varchar(255);not null;<-:create"`
	Body      string    `gorm:"type:text;not null;<-:create"`
	SentAt    *time.Time

	User *User `gorm:"foreignKey:UserID"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
