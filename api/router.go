package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 為所有錯誤回應的共用body
type ErrorResponse struct {
	Message string `json:"message"`
}

func RegisterRoutes(router gin.IRouter, impl *ServerImpl) {
	router.Use(impl.SessionMiddleware())

	auth := router.Group("/auth")
	{
		auth.POST("/signup", impl.PostSignup)
		auth.POST("/signin", impl.PostSignin)
		auth.POST("/signout", impl.PostSignout)
		auth.GET("/user", impl.GetAuthUser)
		auth.POST("/reset-password", impl.PostResetPassword)
		auth.POST("/reset-password/confirm", impl.PostResetPasswordConfirm)
		auth.GET("/sso/:provider/login", impl.GetAuthSsoProviderLogin)
		auth.GET("/sso/:provider/callback", impl.GetAuthSsoProviderCallback)
	}

	user := router.Group("/user")
	{
		user.GET("/info", impl.GetUserInfo)
		user.PATCH("/info", impl.PatchUserInfo)
		user.PATCH("/password", impl.PatchUserPassword)
		user.GET("/bids", impl.GetUserBids)
		user.GET("/payment-methods", impl.GetUserPaymentMethods)
	}

	artworks := router.Group("/artworks")
	{
		artworks.GET("", impl.GetArtworks)
		artworks.POST("", impl.PostArtworks)
		artworks.GET("/:artworkID", impl.GetArtwork)
		artworks.PATCH("/:artworkID", impl.PatchArtwork)
		artworks.DELETE("/:artworkID", impl.DeleteArtwork)
		artworks.POST("/:artworkID/featured", impl.PostArtworkFeatured)
		artworks.GET("/:artworkID/bids", impl.GetArtworkBids)
		artworks.GET("/:artworkID/bids/latest", impl.GetArtworkLatestBid)
		artworks.POST("/:artworkID/bids", impl.PostArtworkBid)
		artworks.GET("/:artworkID/events", impl.GetArtworkEvents)
	}

	router.GET("/artists", impl.GetArtists)
	router.GET("/artists/:artistID/artworks", impl.GetArtistArtworks)

	router.POST("/images", impl.PostImage)
}

// currentClaims 從cookie取出並驗證存取權杖，
// 未登入或權杖無效時回傳nil。
func (impl *ServerImpl) currentClaims(c *gin.Context) *Claims {
	tokenString, err := c.Cookie(AccessTokenCookie)
	if err != nil || tokenString == "" {
		return nil
	}
	claims, err := ParseAndValidateJWT(tokenString, impl.config.Auth.PrivateKey)
	if err != nil {
		slog.Debug("Fail to parse and validate JWT", slog.Any("error", err))
		return nil
	}
	return claims
}

func (impl *ServerImpl) internalError(c *gin.Context, op string, err error) {
	slog.Error("Internal server error", slog.String("op", op), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
}
