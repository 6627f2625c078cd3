package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/LENINALX/vinculacion/adapters/oidc"
	"github.com/LENINALX/vinculacion/adapters/session"
	"github.com/LENINALX/vinculacion/models"
)

// resetTokenTTL 為密碼重設權杖的有效時間
const resetTokenTTL = 30 * time.Minute

type SignupRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	FullName     string `json:"fullName" binding:"required"`
	UserType     string `json:"userType"`
	Phone        string `json:"phone"`
	ArtistCedula string `json:"artistCedula"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	UserType     string    `json:"userType"`
	Phone        string    `json:"phone,omitempty"`
	ArtistCedula string    `json:"artistCedula,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	IsArtist     bool      `json:"isArtist"`
	IsClient     bool      `json:"isClient"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		UserType:     string(user.UserType),
		Phone:        user.Phone,
		ArtistCedula: user.ArtistCedula,
		AvatarURL:    user.AvatarURL,
		IsAdmin:      user.IsAdmin(),
		IsArtist:     user.IsArtist(),
		IsClient:     user.IsClient(),
	}
}

// Register a new user
// (POST /auth/signup)
func (impl *ServerImpl) PostSignup(c *gin.Context) {
	const op = "PostSignup"
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	// 檢查註冊資料是否合法
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid email"})
		return
	}
	if !ValidPassword(req.Password) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "password must be at least 6 characters"})
		return
	}
	if req.Phone != "" && !ValidPhone(req.Phone) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid phone"})
		return
	}
	// 公開註冊只允許client和artist
	userType := models.UserTypeClient
	if req.UserType != "" {
		userType = models.UserType(req.UserType)
	}
	if !userType.Valid() || userType == models.UserTypeAdmin {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid user type"})
		return
	}
	if userType == models.UserTypeArtist && req.ArtistCedula == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "artist cedula is required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to hash password, err=%w", op, err))
		return
	}
	// 在同一筆交易內建立使用者與內部身份
	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		UserType:     userType,
		Phone:        req.Phone,
		ArtistCedula: req.ArtistCedula,
	}
	txErr := impl.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&user); result.Error != nil {
			return result.Error
		}
		ssoProvider := models.SsoProvider{Name: models.SsoProviderInternal}
		if result := tx.Where(&ssoProvider).First(&ssoProvider); result.Error != nil {
			return result.Error
		}
		identity := models.UserIdentity{
			UserID:        user.ID,
			SsoProviderID: ssoProvider.ID,
			Identity:      user.Email,
		}
		if result := tx.Create(&identity); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "email already registered"})
		return
	}
	if txErr != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to create user, err=%w", op, txErr))
		return
	}
	// 註冊成功直接簽發token
	tokenString, err := impl.IssueJWT(&user)
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	impl.setAccessTokenCookie(c, tokenString)
	slog.Info("User registered", slog.String("user", user.ID.String()), slog.String("type", string(user.UserType)))
	c.JSON(http.StatusCreated, toUserResponse(&user))
}

// Sign in with email and password
// (POST /auth/signin)
func (impl *ServerImpl) PostSignin(c *gin.Context) {
	const op = "PostSignin"
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := models.User{}
	if result := impl.db.Where("email = ?", email).First(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	// SSO-only的使用者沒有密碼
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
		return
	}
	tokenString, err := impl.IssueJWT(&user)
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	impl.setAccessTokenCookie(c, tokenString)
	c.JSON(http.StatusOK, toUserResponse(&user))
}

// Sign out
// (POST /auth/signout)
func (impl *ServerImpl) PostSignout(c *gin.Context) {
	// 只清除cookie，不做伺服器端撤銷
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusOK)
}

// Get the authenticated user
// (GET /auth/user)
func (impl *ServerImpl) GetAuthUser(c *gin.Context) {
	const op = "GetAuthUser"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	user := models.User{ID: uuid.MustParse(claims.Subject)}
	if result := impl.db.First(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusUnauthorized)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// Request a password reset token
// (POST /auth/reset-password)
func (impl *ServerImpl) PostResetPassword(c *gin.Context) {
	const op = "PostResetPassword"
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := models.User{}
	if result := impl.db.Where("email = ?", email).First(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			// 不洩漏email是否存在
			c.Status(http.StatusAccepted)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	token, err := generateID("pr")
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	resetKey := impl.config.Redis.KeyPrefix + "reset:" + token
	if err := impl.redisClient.Set(c.Request.Context(), resetKey, user.ID.String(), resetTokenTTL).Err(); err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to store reset token, err=%w", op, err))
		return
	}
	// 通知請求交由worker寫入寄件匣
	err = impl.notifyProducer.Publish(NotificationMessage{
		UserID:    user.ID,
		Recipient: user.Email,
		Subject:   "Restablecer contraseña",
		Body:      fmt.Sprintf("Use este código para restablecer su contraseña: %s", token),
	})
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to publish notification, err=%w", op, err))
		return
	}
	c.Status(http.StatusAccepted)
}

type ResetPasswordConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Confirm a password reset
// (POST /auth/reset-password/confirm)
func (impl *ServerImpl) PostResetPasswordConfirm(c *gin.Context) {
	const op = "PostResetPasswordConfirm"
	var req ResetPasswordConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if !ValidPassword(req.NewPassword) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "password must be at least 6 characters"})
		return
	}
	resetKey := impl.config.Redis.KeyPrefix + "reset:" + req.Token
	userIDString, err := impl.redisClient.Get(c.Request.Context(), resetKey).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid or expired token"})
		return
	}
	userID, err := uuid.Parse(userIDString)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Invalid user id in reset token, err=%w", op, err))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to hash password, err=%w", op, err))
		return
	}
	if result := impl.db.Model(&models.User{ID: userID}).Update("password_hash", string(hash)); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to update password, err=%w", op, result.Error))
		return
	}
	// 權杖是一次性的
	if err := impl.redisClient.Del(c.Request.Context(), resetKey).Err(); err != nil {
		slog.Warn("Fail to delete reset token", slog.String("op", op), slog.Any("error", err))
	}
	c.Status(http.StatusOK)
}

// Obtain authentication url
// (GET /auth/sso/{provider}/login)
func (impl *ServerImpl) GetAuthSsoProviderLogin(c *gin.Context) {
	const op = "GetAuthSsoProviderLogin"
	provider, ok := impl.oidcProviders[c.Param("provider")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	redirectUrl := c.Query("redirect_url")
	if redirectUrl == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "redirect_url is required"})
		return
	}
	state, err := generateID("st")
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	nonce, err := generateID("n")
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	// 將state和nonce存入session，callback時驗證
	sess, err := session.GetSession(c)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to get session, err=%w", op, err))
		return
	}
	sess.Set(SESSION_KEY_REQUEST_STATE, state)
	sess.Set(SESSION_KEY_REQUEST_NONCE, nonce)
	sess.Set(SESSION_KEY_REDIRECT_URL, redirectUrl)
	if err := sess.Save(); err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to save session, err=%w", op, err))
		return
	}
	c.Redirect(http.StatusFound, provider.AuthURL(state, nonce, redirectUrl, []string{"email", "openid", "profile"}))
}

// Exchange authorization code
// (GET /auth/sso/{provider}/callback)
func (impl *ServerImpl) GetAuthSsoProviderCallback(c *gin.Context) {
	const op = "GetAuthSsoProviderCallback"
	providerName := c.Param("provider")
	provider, ok := impl.oidcProviders[providerName]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	// 驗證callback的參數和login時儲存在session的參數是否相同
	sess, err := session.GetSession(c)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to get session, err=%w", op, err))
		return
	}
	requestState := sess.Get(SESSION_KEY_REQUEST_STATE)
	requestNonce := sess.Get(SESSION_KEY_REQUEST_NONCE)
	redirectUrl := sess.Get(SESSION_KEY_REDIRECT_URL)
	verifier := provider.NewExchangeVerifier(requestState, requestNonce)
	// 向驗證伺服器交換token
	token, err := provider.Exchange(c.Request.Context(), verifier, c.Query("code"), c.Query("state"), redirectUrl)
	if errors.Is(err, oidc.ErrStateMismatch) || errors.Is(err, oidc.ErrNonceMismatch) {
		c.Status(http.StatusBadRequest)
		return
	}
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to exchange token, err=%w", op, err))
		return
	}
	// 關聯使用者資料，如果identity不存在，會建立新的使用者
	ssoProvider := models.SsoProvider{Name: providerName}
	if result := impl.db.Where(&ssoProvider).First(&ssoProvider); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find sso provider %s, err=%w", op, providerName, result.Error))
		return
	}
	userIdentity := models.UserIdentity{
		SsoProviderID: ssoProvider.ID,
		Identity:      token.IDToken.Sub,
	}
	if result := impl.db.Preload("User").Where(&userIdentity).First(&userIdentity); result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to get user identity, err=%w", op, result.Error))
		return
	} else if result.Error != nil {
		// 首次登入的外部身份一律建立為client
		userIdentity.User = &models.User{
			Email:     strings.ToLower(token.IDToken.Email),
			FullName:  token.IDToken.Name,
			UserType:  models.UserTypeClient,
			AvatarURL: token.IDToken.Picture,
		}
		if result := impl.db.Create(&userIdentity); result.Error != nil {
			impl.internalError(c, op, fmt.Errorf("[%s] Fail to create user identity, err=%w", op, result.Error))
			return
		}
	}
	// 簽發token並導回原頁面
	tokenString, err := impl.IssueJWT(userIdentity.User)
	if err != nil {
		impl.internalError(c, op, err)
		return
	}
	impl.setAccessTokenCookie(c, tokenString)
	sess.Delete(SESSION_KEY_REQUEST_STATE)
	sess.Delete(SESSION_KEY_REQUEST_NONCE)
	sess.Delete(SESSION_KEY_REDIRECT_URL)
	if err := sess.Save(); err != nil {
		slog.Warn("Fail to save session", slog.String("op", op), slog.Any("error", err))
	}
	c.Redirect(http.StatusFound, redirectUrl)
}

func (impl *ServerImpl) setAccessTokenCookie(c *gin.Context, tokenString string) {
	maxAge := int(impl.config.Auth.ExpireDuration.Seconds())
	c.SetCookie(AccessTokenCookie, tokenString, maxAge, "/", "", false, true)
}
