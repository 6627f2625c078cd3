package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType 代表使用者的角色
type UserType string

const (
	UserTypeClient UserType = "client"
	UserTypeArtist UserType = "artist"
	UserTypeAdmin  UserType = "admin"
)

// Valid 檢查角色是否為合法值
func (t UserType) Valid() bool {
	switch t {
	case UserTypeClient, UserTypeArtist, UserTypeAdmin:
		return true
	}
	return false
}

// User 代表藝廊平台中的使用者
// 同時包含帳號資訊（email、密碼雜湊）與個人檔案（姓名、角色、聯絡方式），
// 藝術家額外記錄作者證號（cédula）
type User struct {
	gorm.Model

	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex;<-:create"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	FullName     string    `gorm:"type:varchar(255);not null"`
	UserType     UserType  `gorm:"type:varchar(16);not null;default:'client'"`
	Phone        string    `gorm:"type:varchar(32)"`
	ArtistCedula string    `gorm:"type:varchar(32)"`
	AvatarURL    string    `gorm:"type:text"`

	// 外鍵關聯
	Identities []UserIdentity
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// 角色旗標是 UserType 的唯讀投影
func (u User) IsAdmin() bool  { return u.UserType == UserTypeAdmin }
func (u User) IsArtist() bool { return u.UserType == UserTypeArtist }
func (u User) IsClient() bool { return u.UserType == UserTypeClient }
