package api

import (
	"crypto"
	"time"
)

type ServerConfig struct {
	Auth    AuthConfig
	OIDC    OIDCConfig
	S3      S3Config
	DB      DBConfig
	Redis   RedisConfig
	Session SessionConfig
	Auction AuctionConfig
}

type AuthConfig struct {
	// PrivateKey 為簽發存取權杖使用的 Ed25519 私鑰
	PrivateKey     crypto.Signer
	Issuer         string
	Audience       string
	ExpireDuration time.Duration
}

type OIDCConfig struct {
	Providers map[string]OIDCProviderConfig
}

type OIDCProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
	// RateLimitPerHour 限制單一使用者每小時可上傳的圖片數量，0表示不限制
	RateLimitPerHour int64
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// ExpireTime 為出價快取鍵的存活時間
	ExpireTime time.Duration

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	BidStream          string
	NotificationStream string
}

type SessionConfig struct {
	KeyForCookie string
	CookieMaxAge time.Duration
}

type AuctionConfig struct {
	// BidIncrement 為每次成功出價後，下一次出價需要墊高的金額(分)
	BidIncrement int64
}
