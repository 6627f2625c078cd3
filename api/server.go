package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/LENINALX/vinculacion/adapters/oidc"
	redisAdapter "github.com/LENINALX/vinculacion/adapters/redis"
	internalS3 "github.com/LENINALX/vinculacion/adapters/s3"
	"github.com/LENINALX/vinculacion/adapters/sse"
	"github.com/LENINALX/vinculacion/models"
)

// BidInfo 為經由 Redis stream 傳遞的出價資訊
type BidInfo struct {
	ArtworkID uuid.UUID   `msgpack:"artworkID"`
	User      BidInfoUser `msgpack:"user"`
	Amount    int64       `msgpack:"amount"`
	CreatedAt time.Time   `msgpack:"createdAt"`
}

type BidInfoUser struct {
	ID   uuid.UUID `msgpack:"id"`
	Name string    `msgpack:"name"`
}

// BidEvent 為推送給SSE訂閱者的出價事件
type BidEvent struct {
	Bid  int64     `json:"bid"`
	User string    `json:"user"`
	Time time.Time `json:"time"`
}

// NotificationMessage 為經由 Redis stream 傳遞的通知請求，
// 由通知worker寫入資料庫的寄件匣。
type NotificationMessage struct {
	UserID    uuid.UUID `msgpack:"userID"`
	Recipient string    `msgpack:"recipient"`
	Subject   string    `msgpack:"subject"`
	Body      string    `msgpack:"body"`
}

type ServerImpl struct {
	oidcProviders  map[string]*oidc.Provider
	sseManager     sse.IConnectionManager[BidEvent]
	s3Operator     *internalS3.S3Operator
	htmlChecker    *bluemonday.Policy
	redisClient    *redis.Client
	bidProducer    redisAdapter.IProducer[BidInfo]
	bidConsumer    redisAdapter.IConsumer[sse.PublishRequest[BidEvent]]
	notifyProducer redisAdapter.IProducer[NotificationMessage]
	notifyConsumer redisAdapter.IConsumer[NotificationMessage]
	wg             sync.WaitGroup
	cancelFunc     context.CancelFunc
	db             *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化OIDC提供者
	oidcProviders := make(map[string]*oidc.Provider, len(config.OIDC.Providers))
	for provider, providerConfig := range config.OIDC.Providers {
		oidcProvider, err := oidc.NewProvider(providerConfig.IssuerURL, providerConfig.ClientID, providerConfig.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to initial OIDC provider, provider=%s, err=%w", op, provider, err)
		}
		oidcProviders[provider] = oidcProvider
	}

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	return newServerWithDeps(config, oidcProviders, s3Operator, db, redisClient)
}

// newServerWithDeps 組裝伺服器並接上stream的消費者與生產者，
// 讓測試可以帶入自己的資料庫和Redis連線。
func newServerWithDeps(
	config ServerConfig,
	oidcProviders map[string]*oidc.Provider,
	s3Operator *internalS3.S3Operator,
	db *gorm.DB,
	redisClient *redis.Client,
) (*ServerImpl, error) {
	const op = "newServerWithDeps"

	// 初始化出價stream的生產者，出價在資料庫交易成功後才發佈
	bidProducer, err := redisAdapter.NewProducer[BidInfo](redisClient, config.Redis.StreamKeys.BidStream)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create bid producer, err=%w", op, err)
	}

	// 初始化SSE管理器
	bidConsumer, err := redisAdapter.NewConsumer(
		redisClient,
		config.Redis.StreamKeys.BidStream,
		redisAdapter.WithConsumerParseFunc(func(m map[string]any) (sse.PublishRequest[BidEvent], error) {
			bidInfo, err := redisAdapter.DefaultParseFromMessage[BidInfo](m)
			if err != nil {
				return sse.PublishRequest[BidEvent]{}, fmt.Errorf("fail to parse message to sse.PublishRequest[BidEvent], err=%w", err)
			}
			return sse.PublishRequest[BidEvent]{
				Channel: bidInfo.ArtworkID.String(),
				Message: BidEvent{
					Bid:  bidInfo.Amount,
					User: bidInfo.User.Name,
					Time: bidInfo.CreatedAt,
				},
			}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create bid consumer, err=%w", op, err)
	}
	sseManager := sse.NewConnectionManager[BidEvent](
		sse.WithLogger[BidEvent](slog.Default()),
		sse.WithSubscriber[BidEvent](bidConsumer),
	)

	// 初始化通知stream的生產者與消費者
	notifyProducer, err := redisAdapter.NewProducer[NotificationMessage](redisClient, config.Redis.StreamKeys.NotificationStream)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create notification producer, err=%w", op, err)
	}
	notifyConsumer, err := redisAdapter.NewConsumer[NotificationMessage](redisClient, config.Redis.StreamKeys.NotificationStream)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create notification consumer, err=%w", op, err)
	}

	return &ServerImpl{
		oidcProviders:  oidcProviders,
		sseManager:     sseManager,
		s3Operator:     s3Operator,
		htmlChecker:    bluemonday.UGCPolicy(),
		redisClient:    redisClient,
		bidProducer:    bidProducer,
		bidConsumer:    bidConsumer,
		notifyProducer: notifyProducer,
		notifyConsumer: notifyConsumer,
		db:             db,
		config:         config,
	}, nil
}

func (impl *ServerImpl) Start() {
	// 啟動sse connection manager(含bid consumer)
	impl.sseManager.Start()
	// 啟動出價stream的生產者
	impl.bidProducer.Start()
	// 啟動通知stream
	impl.notifyProducer.Start()
	impl.notifyConsumer.Start()
	// 啟動一個worker將通知請求存入資料庫的寄件匣
	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel
	slog.Info("Start notification outbox worker")
	impl.wg.Add(1)
	go func() {
		logger := slog.Default().With(slog.String("caller", "NotificationOutbox"))
		defer impl.wg.Done()
		defer slog.Info("Notification outbox worker stopped")
		ch := impl.notifyConsumer.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				logger.Debug("Receive notification request")
				notification := models.Notification{
					UserID:    msg.UserID,
					Recipient: msg.Recipient,
					Subject:   msg.Subject,
					Body:      msg.Body,
				}
				if result := impl.db.Create(&notification); result.Error != nil {
					logger.Error("Fail to store notification", slog.Any("error", result.Error))
					continue
				}
				logger.Debug("Notification stored", slog.String("recipient", msg.Recipient))
			}
		}
	}()
}

func (impl *ServerImpl) Close() {
	// 關閉worker
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	// 關閉出價stream的生產者
	impl.bidProducer.Close()
	// 關閉通知stream
	impl.notifyProducer.Close()
	impl.notifyConsumer.Close()
	impl.wg.Wait()
	// 關閉sse connection manager(含bid consumer)
	impl.sseManager.Done()
}

func generateID(prefix string) (string, error) {
	const op = "generateID"
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("[%s] Fail to generate unique id, err=%w", op, err)
	}
	return prefix + "_" + base64.URLEncoding.EncodeToString(bytes), nil
}
