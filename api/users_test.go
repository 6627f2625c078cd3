package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENINALX/vinculacion/models"
)

func TestGetUserInfo(t *testing.T) {
	impl, router, _ := newTestServer(t)
	user, token := createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	// 連結內部身份
	ssoProvider := models.SsoProvider{Name: models.SsoProviderInternal}
	require.NoError(t, impl.db.Where(&ssoProvider).First(&ssoProvider).Error)
	require.NoError(t, impl.db.Create(&models.UserIdentity{
		UserID:        user.ID,
		SsoProviderID: ssoProvider.ID,
		Identity:      user.Email,
	}).Error)

	t.Run("返回使用者資訊與已連結的提供者", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/user/info", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp UserInfoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, user.Email, resp.Email)
		assert.True(t, resp.SsoProviders.Internal)
		assert.False(t, resp.SsoProviders.Google)
	})

	t.Run("未登入應返回401", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/user/info", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPatchUserInfo(t *testing.T) {
	impl, router, _ := newTestServer(t)
	user, token := createTestUser(t, impl, "cliente@example.com", models.UserTypeClient)

	t.Run("更新姓名與電話", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/info", token, PatchUserInfoRequest{
			FullName: lo.ToPtr("Nuevo Nombre"),
			Phone:    lo.ToPtr("0987654321"),
		})
		require.Equal(t, http.StatusOK, w.Code)

		var updated models.User
		require.NoError(t, impl.db.First(&updated, "id = ?", user.ID).Error)
		assert.Equal(t, "Nuevo Nombre", updated.FullName)
		assert.Equal(t, "0987654321", updated.Phone)
	})

	t.Run("空白的姓名應返回400", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/info", token, PatchUserInfoRequest{
			FullName: lo.ToPtr("   "),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("不合法的電話應返回400", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/user/info", token, PatchUserInfoRequest{
			Phone: lo.ToPtr("no-phone"),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
