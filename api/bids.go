package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	redisAdapter "github.com/LENINALX/vinculacion/adapters/redis"
	"github.com/LENINALX/vinculacion/models"
)

type PostBidRequest struct {
	CardNumber string `json:"cardNumber" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
}

type PostBidResponse struct {
	BidID      uuid.UUID `json:"bidId"`
	Amount     int64     `json:"amount"`
	MinNextBid int64     `json:"minNextBid"`
}

// Place a bid on an artwork
// (POST /artworks/{artworkID}/bids)
func (impl *ServerImpl) PostArtworkBid(c *gin.Context) {
	const op = "PostArtworkBid"
	// 檢查使用者是否可以出價
	//  - 未登入直接拒絕
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	//  - 只有client可以出價
	if claims.UserType != models.UserTypeClient {
		c.Status(http.StatusForbidden)
		return
	}
	// 在任何寫入之前先驗證付款表單
	var req PostBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	if !ValidCardNumber(req.CardNumber) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "card number must be 13 to 19 digits"})
		return
	}
	if !ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid email"})
		return
	}
	if !ValidPhone(req.Phone) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid phone"})
		return
	}
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	// 檢查作品是否存在且還在拍賣中
	artwork := models.Artwork{ID: artworkID}
	if result := impl.db.Where("status = ?", models.ArtworkStatusActive).First(&artwork); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return
	}
	// 藝術家不能對自己的作品出價(client身份不會發生，保險起見仍檢查)
	userID := uuid.MustParse(claims.Subject)
	if artwork.ArtistID == userID {
		c.Status(http.StatusForbidden)
		return
	}

	// 取得Redis上作品的出價鎖
	ctx := c.Request.Context()
	lockKey := fmt.Sprintf("%sartwork:%s:lock", impl.config.Redis.KeyPrefix, artworkID)
	dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey)
	lockCtx, err := dMutex.Lock(ctx)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to acquire bid lock, err=%w", op, err))
		return
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			slog.Warn("Fail to release bid lock", slog.String("op", op), slog.Any("error", err))
		}
	}()

	// 出價金額固定為作品目前的下次最低出價
	amount := artwork.MinNextBid
	expireTime := strconv.FormatInt(int64(impl.config.Redis.ExpireTime.Seconds()), 10)
	increment := strconv.FormatInt(impl.config.Auction.BidIncrement, 10)
	artworkKey := fmt.Sprintf("%sartwork:%s:min-next-bid", impl.config.Redis.KeyPrefix, artworkID)
	scriptKeys := []string{artworkKey}

	// 透過Lua script來檢查並墊高下次最低出價
	status, err := BidScript.Run(lockCtx, impl.redisClient, scriptKeys, amount, expireTime, increment).Int()
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err))
		return
	}
	if status == -1 {
		// 快取不存在，將資料庫紀錄的下次最低出價寫入Redis後重試
		// NOTE: 持有出價鎖期間不會有其他人改動這個鍵，所以這裡的seed不會蓋掉更新的值
		if err := impl.redisClient.Set(lockCtx, artworkKey, artwork.MinNextBid, impl.config.Redis.ExpireTime).Err(); err != nil {
			impl.internalError(c, op, fmt.Errorf("[%s] Fail to seed min next bid in Redis, err=%w", op, err))
			return
		}
		status, err = BidScript.Run(lockCtx, impl.redisClient, scriptKeys, amount, expireTime, increment).Int()
		if err != nil {
			impl.internalError(c, op, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err))
			return
		}
	}
	switch status {
	case 0:
		// 出價已經被別人搶先，回傳最新的下次最低出價
		refreshed, err := impl.redisClient.Get(lockCtx, artworkKey).Int64()
		if err != nil {
			refreshed = artwork.MinNextBid
		}
		c.JSON(http.StatusConflict, gin.H{
			"message":    "bid amount is no longer valid",
			"minNextBid": refreshed,
		})
		return
	case 1:
		// continue
	default:
		impl.internalError(c, op, fmt.Errorf("[%s] Invalid script return value: %d", op, status))
		return
	}

	// 付款與出價在同一筆交易內落地
	bid := models.Bid{
		ArtworkID: artworkID,
		UserID:    userID,
		BidAmount: amount,
	}
	txErr := impl.db.Transaction(func(tx *gorm.DB) error {
		// 先留下付款資料
		paymentMethod := models.PaymentMethod{
			UserID:          userID,
			CardNumberLast4: CardNumberLast4(req.CardNumber),
			Email:           req.Email,
			Phone:           req.Phone,
		}
		if result := tx.Create(&paymentMethod); result.Error != nil {
			return fmt.Errorf("fail to create payment method, err=%w", result.Error)
		}
		if result := tx.Create(&bid); result.Error != nil {
			return fmt.Errorf("fail to create bid, err=%w", result.Error)
		}
		// 條件式更新保證同一個價位最多只有一筆出價成立
		result := tx.Model(&models.Artwork{}).
			Where("id = ? AND min_next_bid = ?", artworkID, amount).
			Updates(map[string]any{
				"current_bid":  amount,
				"min_next_bid": amount + impl.config.Auction.BidIncrement,
			})
		if result.Error != nil {
			return fmt.Errorf("fail to update artwork bid state, err=%w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errStaleBid
		}
		return nil
	})
	if txErr != nil {
		// 補償：移除快取，下一次出價會重新從資料庫seed
		if err := impl.redisClient.Del(lockCtx, artworkKey).Err(); err != nil {
			slog.Warn("Fail to drop min next bid cache", slog.String("op", op), slog.Any("error", err))
		}
		if errors.Is(txErr, errStaleBid) {
			c.JSON(http.StatusConflict, ErrorResponse{Message: "bid amount is no longer valid"})
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to persist bid, err=%w", op, txErr))
		return
	}
	slog.Info("Bid accepted",
		slog.String("user", claims.Subject),
		slog.Int64("amount", amount),
		slog.String("artwork", artworkID.String()),
	)
	// 交易成功後才將出價事件發佈到stream，
	// 回滾的提交不會讓SSE訂閱者看到任何東西
	err = impl.bidProducer.Publish(BidInfo{
		ArtworkID: artworkID,
		User: BidInfoUser{
			ID:   userID,
			Name: claims.Username,
		},
		Amount:    amount,
		CreatedAt: bid.CreatedAt,
	})
	if err != nil {
		// 出價已經落地，推播失敗只記錄不影響回應
		slog.Warn("Fail to publish bid event", slog.String("op", op), slog.Any("error", err))
	}
	c.JSON(http.StatusCreated, PostBidResponse{
		BidID:      bid.ID,
		Amount:     amount,
		MinNextBid: amount + impl.config.Auction.BidIncrement,
	})
}

// errStaleBid 表示條件式更新沒有命中，出價已經過期
var errStaleBid = errors.New("stale bid")

// List bids of an artwork
// (GET /artworks/{artworkID}/bids)
func (impl *ServerImpl) GetArtworkBids(c *gin.Context) {
	const op = "GetArtworkBids"
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	var bids []models.Bid
	result := impl.db.
		Preload("User").
		Where("artwork_id = ?", artworkID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&bids)
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list bids, err=%w", op, result.Error))
		return
	}
	output := make([]BidEvent, len(bids))
	for i, bid := range bids {
		output[i] = BidEvent{
			Bid:  bid.BidAmount,
			User: bid.User.FullName,
			Time: bid.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, output)
}

// Get the latest bid of an artwork
// (GET /artworks/{artworkID}/bids/latest)
func (impl *ServerImpl) GetArtworkLatestBid(c *gin.Context) {
	const op = "GetArtworkLatestBid"
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	bid := models.Bid{}
	result := impl.db.
		Preload("User").
		Where("artwork_id = ?", artworkID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		First(&bid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find latest bid, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, BidEvent{
		Bid:  bid.BidAmount,
		User: bid.User.FullName,
		Time: bid.CreatedAt,
	})
}

// Track artwork bid events
// (GET /artworks/{artworkID}/events)
func (impl *ServerImpl) GetArtworkEvents(c *gin.Context) {
	const op = "GetArtworkEvents"
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	// 檢查作品是否存在且還在拍賣中
	artwork := models.Artwork{ID: artworkID}
	if result := impl.db.Where("status = ?", models.ArtworkStatusActive).First(&artwork); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return
	}
	// SSE請求合法，開始初始化串流
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	ch, err := impl.sseManager.Subscribe(artworkID.String())
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to subscribe to artwork events, err=%w", op, err))
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			impl.sseManager.Unsubscribe(artworkID.String(), ch)
			return
		case event := <-ch:
			c.SSEvent("bid", event)
			w.Flush()
		// 30秒沒有事件就發送一個空行，確保瀏覽器和Proxy不會斷開連線
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}
