package main

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/LENINALX/vinculacion/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// auth config
	pflag.String("auth-private-key", "", "base64-encoded Ed25519 seed")
	pflag.String("auth-issuer", "vinculacion", "")
	pflag.String("auth-audience", "vinculacion", "")
	pflag.Duration("auth-expire-duration", 3*time.Hour, "")

	// oidc config
	pflag.String("oidc-google-issuer-url", "https://accounts.google.com", "")
	pflag.String("oidc-google-client-id", "", "")
	pflag.String("oidc-google-client-secret", "", "")
	pflag.String("oidc-github-issuer-url", "", "")
	pflag.String("oidc-github-client-id", "", "")
	pflag.String("oidc-github-client-secret", "", "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int64("s3-rate-limit-per-hour", 30, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "vinculacion:", "")
	pflag.Duration("redis-expire-time", 10*time.Minute, "")

	// redis stream keys
	pflag.String("redis-stream-key-for-bids", "vinculacion-shared-bid-stream", "")
	pflag.String("redis-stream-key-for-notifications", "vinculacion-shared-notification-stream", "")

	// session config
	pflag.String("session-key-for-cookie", "vinculacion-session", "")
	pflag.Duration("session-cookie-max-age", 2*time.Hour, "")

	// auction config
	pflag.Int64("auction-bid-increment", 100, "bid increment in cents")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("VINCULACION")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// 解析Ed25519簽章私鑰
	var privateKey crypto.Signer
	if seedBase64 := viper.GetString("auth-private-key"); seedBase64 != "" {
		seed, err := base64.StdEncoding.DecodeString(seedBase64)
		if err == nil && len(seed) == ed25519.SeedSize {
			privateKey = ed25519.NewKeyFromSeed(seed)
		}
	}

	// 組裝OIDC提供者設定，未填client id的提供者不啟用
	oidcProviders := map[string]api.OIDCProviderConfig{}
	if viper.GetString("oidc-google-client-id") != "" {
		oidcProviders["google"] = api.OIDCProviderConfig{
			IssuerURL:    viper.GetString("oidc-google-issuer-url"),
			ClientID:     viper.GetString("oidc-google-client-id"),
			ClientSecret: viper.GetString("oidc-google-client-secret"),
		}
	}
	if viper.GetString("oidc-github-client-id") != "" {
		oidcProviders["github"] = api.OIDCProviderConfig{
			IssuerURL:    viper.GetString("oidc-github-issuer-url"),
			ClientID:     viper.GetString("oidc-github-client-id"),
			ClientSecret: viper.GetString("oidc-github-client-secret"),
		}
	}

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Auth: api.AuthConfig{
				PrivateKey:     privateKey,
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
				ExpireDuration: viper.GetDuration("auth-expire-duration"),
			},
			OIDC: api.OIDCConfig{
				Providers: oidcProviders,
			},
			S3: api.S3Config{
				Endpoint:         viper.GetString("s3-endpoint"),
				Bucket:           viper.GetString("s3-bucket"),
				PublicBaseURL:    viper.GetString("s3-public-base-url"),
				AccessKeyID:      viper.GetString("s3-access-key-id"),
				SecretAccessKey:  viper.GetString("s3-secret-access-key"),
				RateLimitPerHour: viper.GetInt64("s3-rate-limit-per-hour"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:       viper.GetString("redis-addr"),
				Password:   viper.GetString("redis-password"),
				DB:         viper.GetInt("redis-db"),
				KeyPrefix:  viper.GetString("redis-key-prefix"),
				ExpireTime: viper.GetDuration("redis-expire-time"),
				StreamKeys: api.RedisStreamKeys{
					BidStream:          viper.GetString("redis-stream-key-for-bids"),
					NotificationStream: viper.GetString("redis-stream-key-for-notifications"),
				},
			},
			Session: api.SessionConfig{
				KeyForCookie: viper.GetString("session-key-for-cookie"),
				CookieMaxAge: viper.GetDuration("session-cookie-max-age"),
			},
			Auction: api.AuctionConfig{
				BidIncrement: viper.GetInt64("auction-bid-increment"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" && args.ServerConfig.Auth.PrivateKey != nil
}
