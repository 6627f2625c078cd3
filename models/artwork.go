package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtworkStatus 代表作品的狀態
type ArtworkStatus string

const (
	ArtworkStatusActive  ArtworkStatus = "active"
	ArtworkStatusRemoved ArtworkStatus = "removed"
)

// Artwork 代表藝廊中的拍賣作品
// 金額一律以「分」為單位的整數儲存；MinNextBid 必須維持
// CurrentBid 加上固定增額的不變式，只能透過條件式更新修改
type Artwork struct {
	gorm.Model

	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ArtistID     uuid.UUID     `gorm:"type:uuid;not null;index;<-:create"`
	ArtistCedula string        `gorm:"type:varchar(32);<-:create"`
	Title        string        `gorm:"type:varchar(255);not null"`
	Description  string        `gorm:"type:text;not null"`
	ArtworkType  string        `gorm:"type:varchar(64);not null"`
	Technique    string        `gorm:"type:varchar(128)"`
	InitialPrice int64         `gorm:"type:bigint;not null;<-:create"`
	CurrentBid   int64         `gorm:"type:bigint;not null"`
	MinNextBid   int64         `gorm:"type:bigint;not null"`
	ImageURL     string        `gorm:"type:text"`
	Status       ArtworkStatus `gorm:"type:varchar(16);not null;default:'active'"`
	Featured     bool          `gorm:"not null;default:false"`

	// 外鍵關聯
	Artist     User  `gorm:"foreignKey:ArtistID"`
	BidRecords []Bid `gorm:"foreignKey:ArtworkID"`
}

func (a *Artwork) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
