package api

import (
	"crypto"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/LENINALX/vinculacion/models"
)

// AccessTokenCookie 為存放存取權杖的cookie名稱
const AccessTokenCookie = "access_token"

// Claims 為存取權杖的內容，除了標準欄位外，
// 另外記錄使用者名稱與角色，讓授權檢查不需要查詢資料庫。
type Claims struct {
	Username string          `json:"username"`
	UserType models.UserType `json:"userType"`
	jwt.RegisteredClaims
}

// ParseAndValidateJWT 解析並驗證存取權杖
func ParseAndValidateJWT(tokenString string, secret crypto.Signer) (*Claims, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret.Public(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

// IssueJWT 為指定使用者簽發存取權杖
func (impl *ServerImpl) IssueJWT(user *models.User) (string, error) {
	const op = "IssueJWT"
	token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, Claims{
		Username: user.FullName,
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(impl.config.Auth.ExpireDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    impl.config.Auth.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			Audience:  []string{impl.config.Auth.Audience},
		},
	})
	tokenString, err := token.SignedString(impl.config.Auth.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to sign JWT, err=%w", op, err)
	}
	return tokenString, nil
}
