package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENINALX/vinculacion/adapters/redis"
	"github.com/LENINALX/vinculacion/adapters/session"
)

const (
	SESSION_KEY_REQUEST_STATE = "request_state"
	SESSION_KEY_REQUEST_NONCE = "request_nonce"
	SESSION_KEY_REDIRECT_URL  = "redirect_url"
)

func (impl *ServerImpl) SessionMiddleware() gin.HandlerFunc {
	store := redis.NewStore(
		impl.redisClient,
		redis.WithStorePrefix(impl.config.Redis.KeyPrefix+"session:"),
		redis.WithStoreExpiry(impl.config.Session.CookieMaxAge),
	)
	return session.GinMiddleware(
		store,
		session.WithSessionKeyForCookie(impl.config.Session.KeyForCookie),
		session.WithCookieMaxAge(impl.config.Session.CookieMaxAge),
	)
}
