package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ExchangeVerifier 綁定單次登入請求的 state 與 nonce，
// 在授權碼交換時逐項核對，避免回呼被重放。
type ExchangeVerifier struct {
	idTokenVerifier *oidc.IDTokenVerifier
	reqState        string
	reqNonce        string
}

// VerifyIDToken 以提供者公鑰驗證 ID Token 的簽章與有效期。
func (v *ExchangeVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	const op = "VerifyIDToken"
	idToken, err := v.idTokenVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to verify raw ID token, err=%w", op, err)
	}
	return idToken, nil
}

func (v *ExchangeVerifier) VerifyState(state string) bool {
	return state == v.reqState
}

func (v *ExchangeVerifier) VerifyNonce(nonce string) bool {
	return nonce == v.reqNonce
}
