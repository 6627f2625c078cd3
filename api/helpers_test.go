package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	redisAdapter "github.com/LENINALX/vinculacion/adapters/redis"
	"github.com/LENINALX/vinculacion/adapters/sse"
	"github.com/LENINALX/vinculacion/models"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
	gin.SetMode(gin.TestMode)
}

// newTestServer 建立一個以sqlite和miniredis為後端的測試伺服器
func newTestServer(t *testing.T) (*ServerImpl, *gin.Engine, *miniredis.Miniredis) {
	t.Helper()

	// in-memory資料庫，cache=shared讓同一個DSN的連線共用資料
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	// sqlite不擅長並發寫入，單一連線讓所有操作排隊
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserIdentity{},
		&models.SsoProvider{},
		&models.Artwork{},
		&models.Bid{},
		&models.PaymentMethod{},
		&models.Image{},
		&models.Notification{},
	))
	require.NoError(t, db.Create(&models.SsoProvider{Name: models.SsoProviderInternal}).Error)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	config := ServerConfig{
		Auth: AuthConfig{
			PrivateKey:     privateKey,
			Issuer:         "vinculacion-test",
			Audience:       "vinculacion-test",
			ExpireDuration: time.Hour,
		},
		Redis: RedisConfig{
			Addr:       mr.Addr(),
			KeyPrefix:  "test:",
			ExpireTime: 10 * time.Minute,
			StreamKeys: RedisStreamKeys{
				BidStream:          "test-bid-stream",
				NotificationStream: "test-notification-stream",
			},
		},
		Session: SessionConfig{
			KeyForCookie: "test-session",
			CookieMaxAge: time.Hour,
		},
		Auction: AuctionConfig{
			BidIncrement: 100,
		},
	}

	bidProducer, err := redisAdapter.NewProducer[BidInfo](redisClient, config.Redis.StreamKeys.BidStream)
	require.NoError(t, err)
	notifyProducer, err := redisAdapter.NewProducer[NotificationMessage](redisClient, config.Redis.StreamKeys.NotificationStream)
	require.NoError(t, err)
	notifyConsumer, err := redisAdapter.NewConsumer[NotificationMessage](redisClient, config.Redis.StreamKeys.NotificationStream)
	require.NoError(t, err)

	impl := &ServerImpl{
		sseManager:     sse.NewConnectionManager[BidEvent](),
		htmlChecker:    bluemonday.UGCPolicy(),
		redisClient:    redisClient,
		bidProducer:    bidProducer,
		notifyProducer: notifyProducer,
		notifyConsumer: notifyConsumer,
		db:             db,
		config:         config,
	}
	// Publish在Start之前會被拒絕
	bidProducer.Start()
	notifyProducer.Start()
	t.Cleanup(func() {
		bidProducer.Close()
		notifyProducer.Close()
		impl.sseManager.Done()
	})

	router := gin.New()
	RegisterRoutes(router, impl)
	return impl, router, mr
}

// createTestUser 建立一個測試使用者並回傳其存取權杖
func createTestUser(t *testing.T, impl *ServerImpl, email string, userType models.UserType) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test " + string(userType),
		UserType:     userType,
	}
	if userType == models.UserTypeArtist {
		user.ArtistCedula = "0102030405"
	}
	require.NoError(t, impl.db.Create(&user).Error)
	token, err := impl.IssueJWT(&user)
	require.NoError(t, err)
	return &user, token
}

// createTestArtwork 建立一個測試作品
func createTestArtwork(t *testing.T, impl *ServerImpl, artist *models.User, initialPrice int64) *models.Artwork {
	t.Helper()
	artwork := models.Artwork{
		ArtistID:     artist.ID,
		ArtistCedula: artist.ArtistCedula,
		Title:        "Paisaje andino",
		Description:  "Óleo sobre lienzo",
		ArtworkType:  "pintura",
		Technique:    "óleo",
		InitialPrice: initialPrice,
		CurrentBid:   initialPrice,
		MinNextBid:   initialPrice + impl.config.Auction.BidIncrement,
		Status:       models.ArtworkStatusActive,
	}
	require.NoError(t, impl.db.Create(&artwork).Error)
	return &artwork
}

// doRequest 送出一個JSON請求，token不為空時附上存取權杖cookie
func doRequest(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
