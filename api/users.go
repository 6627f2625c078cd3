package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LENINALX/vinculacion/models"
)

// SSOProviderConnectStatus 表示使用者已連結哪些登入提供者
type SSOProviderConnectStatus struct {
	Internal bool `json:"internal"`
	Google   bool `json:"google"`
	GitHub   bool `json:"github"`
}

type UserInfoResponse struct {
	UserResponse
	SsoProviders SSOProviderConnectStatus `json:"ssoProviders"`
}

// Get user information
// (GET /user/info)
func (impl *ServerImpl) GetUserInfo(c *gin.Context) {
	const op = "GetUserInfo"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	user := models.User{ID: uuid.MustParse(claims.Subject)}
	if result := impl.db.Preload("Identities").Preload("Identities.SsoProvider").First(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusUnauthorized)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	connectStatus := SSOProviderConnectStatus{}
	for _, identity := range user.Identities {
		if identity.SsoProvider == nil {
			continue
		}
		switch identity.SsoProvider.Name {
		case models.SsoProviderInternal:
			connectStatus.Internal = true
		case models.SsoProviderGoogle:
			connectStatus.Google = true
		case models.SsoProviderGitHub:
			connectStatus.GitHub = true
		}
	}
	c.JSON(http.StatusOK, UserInfoResponse{
		UserResponse: toUserResponse(&user),
		SsoProviders: connectStatus,
	})
}

type PatchUserInfoRequest struct {
	FullName  *string `json:"fullName"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatarUrl"`
}

// Update user information
// (PATCH /user/info)
func (impl *ServerImpl) PatchUserInfo(c *gin.Context) {
	const op = "PatchUserInfo"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	var req PatchUserInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	updates := map[string]any{}
	if req.FullName != nil {
		fullName := strings.TrimSpace(*req.FullName)
		if fullName == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "full name must not be empty"})
			return
		}
		updates["full_name"] = fullName
	}
	if req.Phone != nil {
		if *req.Phone != "" && !ValidPhone(*req.Phone) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid phone"})
			return
		}
		updates["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		c.Status(http.StatusOK)
		return
	}
	userID := uuid.MustParse(claims.Subject)
	if result := impl.db.Model(&models.User{ID: userID}).Updates(updates); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to update user info, err=%w", op, result.Error))
		return
	}
	c.Status(http.StatusOK)
}

type PatchUserPasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Change the password of the authenticated user
// (PATCH /user/password)
func (impl *ServerImpl) PatchUserPassword(c *gin.Context) {
	const op = "PatchUserPassword"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	var req PatchUserPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if !ValidPassword(req.NewPassword) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "password must be at least 6 characters"})
		return
	}
	user := models.User{ID: uuid.MustParse(claims.Subject)}
	if result := impl.db.First(&user); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "old password does not match"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to hash password, err=%w", op, err))
		return
	}
	if result := impl.db.Model(&user).Update("password_hash", string(hash)); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to update password, err=%w", op, result.Error))
		return
	}
	c.Status(http.StatusOK)
}

type UserBidResponse struct {
	ID        uuid.UUID `json:"id"`
	ArtworkID uuid.UUID `json:"artworkId"`
	Title     string    `json:"title"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// List bids placed by the authenticated user
// (GET /user/bids)
func (impl *ServerImpl) GetUserBids(c *gin.Context) {
	const op = "GetUserBids"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	userID := uuid.MustParse(claims.Subject)
	var bids []models.Bid
	result := impl.db.
		Preload("Artwork").
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&bids)
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list user bids, err=%w", op, result.Error))
		return
	}
	output := make([]UserBidResponse, len(bids))
	for i, bid := range bids {
		output[i] = UserBidResponse{
			ID:        bid.ID,
			ArtworkID: bid.ArtworkID,
			Title:     bid.Artwork.Title,
			Amount:    bid.BidAmount,
			CreatedAt: bid.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, output)
}

type PaymentMethodResponse struct {
	ID              uuid.UUID `json:"id"`
	CardNumberLast4 string    `json:"cardNumberLast4"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	CreatedAt       time.Time `json:"createdAt"`
}

// List payment methods captured for the authenticated user
// (GET /user/payment-methods)
func (impl *ServerImpl) GetUserPaymentMethods(c *gin.Context) {
	const op = "GetUserPaymentMethods"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	userID := uuid.MustParse(claims.Subject)
	var paymentMethods []models.PaymentMethod
	result := impl.db.
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&paymentMethods)
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list payment methods, err=%w", op, result.Error))
		return
	}
	output := make([]PaymentMethodResponse, len(paymentMethods))
	for i, pm := range paymentMethods {
		output[i] = PaymentMethodResponse{
			ID:              pm.ID,
			CardNumberLast4: pm.CardNumberLast4,
			Email:           pm.Email,
			Phone:           pm.Phone,
			CreatedAt:       pm.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, output)
}
