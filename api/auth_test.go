package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENINALX/vinculacion/models"
)

func TestPostSignup(t *testing.T) {
	impl, router, _ := newTestServer(t)

	t.Run("client註冊成功並取得token", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "cliente@example.com",
			Password: "secret123",
			FullName: "Cliente Uno",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "cliente@example.com", resp.Email)
		assert.Equal(t, string(models.UserTypeClient), resp.UserType)
		assert.True(t, resp.IsClient)
		assert.False(t, resp.IsArtist)

		// 回應應包含存取權杖cookie
		cookies := w.Result().Cookies()
		var found bool
		for _, cookie := range cookies {
			if cookie.Name == AccessTokenCookie && cookie.Value != "" {
				found = true
			}
		}
		assert.True(t, found, "access token cookie should be set")

		// 同時應建立內部身份
		var count int64
		require.NoError(t, impl.db.Model(&models.UserIdentity{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("artist註冊需要cedula", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "artista@example.com",
			Password: "secret123",
			FullName: "Artista Uno",
			UserType: string(models.UserTypeArtist),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:        "artista@example.com",
			Password:     "secret123",
			FullName:     "Artista Uno",
			UserType:     string(models.UserTypeArtist),
			ArtistCedula: "0102030405",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("不允許註冊admin", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "admin@example.com",
			Password: "secret123",
			FullName: "Admin",
			UserType: string(models.UserTypeAdmin),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("重複的email應返回409", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "cliente@example.com",
			Password: "secret123",
			FullName: "Cliente Dos",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("不合法的email應返回400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "no-es-email",
			Password: "secret123",
			FullName: "Cliente",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("密碼太短應返回400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signup", "", SignupRequest{
			Email:    "otro@example.com",
			Password: "12345",
			FullName: "Cliente",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPostSignin(t *testing.T) {
	impl, router, _ := newTestServer(t)
	createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	t.Run("正確的密碼可以登入", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "cliente@example.com",
			Password: "password123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "cliente@example.com", resp.Email)
	})

	t.Run("email大小寫不敏感", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "Cliente@Example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("錯誤的密碼應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "cliente@example.com",
			Password: "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("不存在的帳號應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "nadie@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetAuthUser(t *testing.T) {
	impl, router, _ := newTestServer(t)
	user, token := createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	t.Run("有效的token應返回使用者資訊", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/auth/user", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.ID)
		assert.Equal(t, user.Email, resp.Email)
	})

	t.Run("沒有token應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/auth/user", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("偽造的token應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/auth/user", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestResetPassword(t *testing.T) {
	impl, router, mr := newTestServer(t)
	createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	t.Run("不存在的email也返回202", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/reset-password", "", ResetPasswordRequest{
			Email: "nadie@example.com",
		})
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("重設密碼的完整流程", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/reset-password", "", ResetPasswordRequest{
			Email: "cliente@example.com",
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		// 從redis撈出重設權杖
		keys := mr.Keys()
		var token string
		for _, key := range keys {
			if len(key) > len("test:reset:") && key[:len("test:reset:")] == "test:reset:" {
				token = key[len("test:reset:"):]
			}
		}
		require.NotEmpty(t, token, "reset token should be stored in redis")

		w = doRequest(router, http.MethodPost, "/auth/reset-password/confirm", "", ResetPasswordConfirmRequest{
			Token:       token,
			NewPassword: "nuevo-secreto",
		})
		require.Equal(t, http.StatusOK, w.Code)

		// 新密碼可以登入
		w = doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "cliente@example.com",
			Password: "nuevo-secreto",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		// 權杖是一次性的
		w = doRequest(router, http.MethodPost, "/auth/reset-password/confirm", "", ResetPasswordConfirmRequest{
			Token:       token,
			NewPassword: "otro-secreto",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("不合法的權杖應返回400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/auth/reset-password/confirm", "", ResetPasswordConfirmRequest{
			Token:       "pr_invalid",
			NewPassword: "nuevo-secreto",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPatchUserPassword(t *testing.T) {
	impl, router, _ := newTestServer(t)
	_, token := createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	t.Run("舊密碼錯誤應返回403", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/password", token, PatchUserPasswordRequest{
			OldPassword: "wrong-password",
			NewPassword: "nuevo-secreto",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("正確的舊密碼可以改密碼", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/password", token, PatchUserPasswordRequest{
			OldPassword: "password123",
			NewPassword: "nuevo-secreto",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodPost, "/auth/signin", "", SigninRequest{
			Email:    "cliente@example.com",
			Password: "nuevo-secreto",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("未登入應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/password", "", PatchUserPasswordRequest{
			OldPassword: "password123",
			NewPassword: "nuevo-secreto",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
