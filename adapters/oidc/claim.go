package oidc

import "github.com/coreos/go-oidc/v3/oidc"

// StandardClaims 是 scope 對應的標準欄位，
// 登入回呼只依賴 email 與 profile 兩組 scope。
type StandardClaims struct {
	Sub string `json:"sub"`
	Iss string `json:"iss"`
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
}

type EmailClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type ProfileClaims struct {
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

type IDToken struct {
	StandardClaims
	EmailClaims
	ProfileClaims

	internal *oidc.IDToken
}

// Claims 將原始 ID Token 的 payload 解析到自訂結構，
// 提供者特有的欄位可由呼叫端自行定義。
func (i *IDToken) Claims(v any) error {
	return i.internal.Claims(v)
}
