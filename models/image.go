package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 代表作品圖片的上傳紀錄
// 除了提供公開 URL 外，也用於計算使用者的上傳頻率限制
type Image struct {
	gorm.Model

	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Url        string    `gorm:"type:text;not null;<-:create"`

	Uploader *User `gorm:"foreignKey:UploaderID"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
