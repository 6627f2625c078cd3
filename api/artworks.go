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
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LENINALX/vinculacion/models"
)

type ArtworkResponse struct {
	ID           uuid.UUID `json:"id"`
	ArtistID     uuid.UUID `json:"artistId"`
	ArtistName   string    `json:"artistName,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ArtworkType  string    `json:"artworkType"`
	Technique    string    `json:"technique,omitempty"`
	InitialPrice int64     `json:"initialPrice"`
	CurrentBid   int64     `json:"currentBid"`
	MinNextBid   int64     `json:"minNextBid"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toArtworkResponse(artwork *models.Artwork) ArtworkResponse {
	return ArtworkResponse{
		ID:           artwork.ID,
		ArtistID:     artwork.ArtistID,
		ArtistName:   artwork.Artist.FullName,
		Title:        artwork.Title,
		Description:  artwork.Description,
		ArtworkType:  artwork.ArtworkType,
		Technique:    artwork.Technique,
		InitialPrice: artwork.InitialPrice,
		CurrentBid:   artwork.CurrentBid,
		MinNextBid:   artwork.MinNextBid,
		ImageURL:     artwork.ImageURL,
		Featured:     artwork.Featured,
		CreatedAt:    artwork.CreatedAt,
	}
}

// List artworks
// (GET /artworks)
func (impl *ServerImpl) GetArtworks(c *gin.Context) {
	const op = "GetArtworks"
	// 建立查詢，只列出active的作品
	query := impl.db.Preload("Artist").Model(&models.Artwork{}).Where("status = ?", models.ArtworkStatusActive)
	//  - type
	if artworkType := c.Query("type"); artworkType != "" {
		query = query.Where("artwork_type = ?", artworkType)
	}
	//  - technique
	if technique := c.Query("technique"); technique != "" {
		query = query.Where("LOWER(technique) LIKE ?", "%"+strings.ToLower(technique)+"%")
	}
	//  - featured
	if featured := c.Query("featured"); featured == "true" {
		query = query.Where("featured = ?", true)
	}
	//  - artist
	if artistID := c.Query("artist_id"); artistID != "" {
		id, err := uuid.Parse(artistID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artist id"})
			return
		}
		query = query.Where("artist_id = ?", id)
	}
	//  - free-text search on title and description
	if search := c.Query("q"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})

	var artworks []models.Artwork
	if result := query.Find(&artworks); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list artworks, err=%w", op, result.Error))
		return
	}
	output := make([]ArtworkResponse, len(artworks))
	for i := range artworks {
		output[i] = toArtworkResponse(&artworks[i])
	}
	c.JSON(http.StatusOK, output)
}

type PostArtworkRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  *string `json:"description"`
	ArtworkType  string  `json:"artworkType" binding:"required"`
	Technique    string  `json:"technique"`
	InitialPrice *int64  `json:"initialPrice"`
	ImageURL     string  `json:"imageUrl"`
}

// Add a new artwork
// (POST /artworks)
func (impl *ServerImpl) PostArtworks(c *gin.Context) {
	const op = "PostArtworks"
	// 檢查使用者是否有權限新增作品
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	if claims.UserType != models.UserTypeArtist {
		c.Status(http.StatusForbidden)
		return
	}
	var req PostArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	// 處理作品描述
	if req.Description != nil {
		req.Description = lo.ToPtr(impl.htmlChecker.Sanitize(*req.Description))
	}
	// 處理預設值
	if req.Description == nil {
		req.Description = lo.ToPtr("")
	}
	if req.InitialPrice == nil {
		req.InitialPrice = lo.ToPtr(int64(0))
	}
	if *req.InitialPrice < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "initial price must not be negative"})
		return
	}
	artistID := uuid.MustParse(claims.Subject)
	artist := models.User{ID: artistID}
	if result := impl.db.First(&artist); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find artist, err=%w", op, result.Error))
		return
	}
	// 儲存作品，下次最低出價為起標價加上增額
	artwork := models.Artwork{
		ArtistID:     artistID,
		ArtistCedula: artist.ArtistCedula,
		Title:        req.Title,
		Description:  *req.Description,
		ArtworkType:  req.ArtworkType,
		Technique:    req.Technique,
		InitialPrice: *req.InitialPrice,
		CurrentBid:   *req.InitialPrice,
		MinNextBid:   *req.InitialPrice + impl.config.Auction.BidIncrement,
		ImageURL:     req.ImageURL,
		Status:       models.ArtworkStatusActive,
	}
	if result := impl.db.Create(&artwork); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to create artwork, err=%w", op, result.Error))
		return
	}
	c.Header("Location", "/artworks/"+artwork.ID.String())
	c.JSON(http.StatusCreated, toArtworkResponse(&artwork))
}

type ArtworkDetailResponse struct {
	ArtworkResponse
	BidRecords []BidEvent `json:"bidRecords"`
}

// Get artwork details
// (GET /artworks/{artworkID})
func (impl *ServerImpl) GetArtwork(c *gin.Context) {
	const op = "GetArtwork"
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	// 檢查作品是否存在
	artwork := models.Artwork{ID: artworkID}
	result := impl.db.
		Preload("Artist").
		Preload("BidRecords", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
		}).
		Preload("BidRecords.User").
		Where("status = ?", models.ArtworkStatusActive).
		First(&artwork)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return
	}
	// 取得所有出價紀錄
	bidRecords := make([]BidEvent, len(artwork.BidRecords))
	for i, bid := range artwork.BidRecords {
		bidRecords[i] = BidEvent{
			Bid:  bid.BidAmount,
			User: bid.User.FullName,
			Time: bid.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, ArtworkDetailResponse{
		ArtworkResponse: toArtworkResponse(&artwork),
		BidRecords:      bidRecords,
	})
}

type PatchArtworkRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ArtworkType *string `json:"artworkType"`
	Technique   *string `json:"technique"`
	ImageURL    *string `json:"imageUrl"`
}

// Update an artwork
// (PATCH /artworks/{artworkID})
func (impl *ServerImpl) PatchArtwork(c *gin.Context) {
	const op = "PatchArtwork"
	artwork, _, done := impl.loadOwnedArtwork(c, op)
	if done {
		return
	}
	var req PatchArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}
	updates := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "title must not be empty"})
			return
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = impl.htmlChecker.Sanitize(*req.Description)
	}
	if req.ArtworkType != nil {
		updates["artwork_type"] = *req.ArtworkType
	}
	if req.Technique != nil {
		updates["technique"] = *req.Technique
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if len(updates) == 0 {
		c.Status(http.StatusOK)
		return
	}
	if result := impl.db.Model(artwork).Updates(updates); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to update artwork, err=%w", op, result.Error))
		return
	}
	c.Status(http.StatusOK)
}

// Remove an artwork
// (DELETE /artworks/{artworkID})
func (impl *ServerImpl) DeleteArtwork(c *gin.Context) {
	const op = "DeleteArtwork"
	artwork, claims, done := impl.loadOwnedArtwork(c, op)
	if done {
		return
	}
	// 軟刪除，保留出價與付款紀錄
	if result := impl.db.Model(artwork).Update("status", models.ArtworkStatusRemoved); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to remove artwork, err=%w", op, result.Error))
		return
	}
	slog.Info("Artwork removed", slog.String("artwork", artwork.ID.String()), slog.String("by", claims.Subject))
	c.Status(http.StatusOK)
}

// Toggle the featured flag
// (POST /artworks/{artworkID}/featured)
func (impl *ServerImpl) PostArtworkFeatured(c *gin.Context) {
	const op = "PostArtworkFeatured"
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	// 只有管理員可以設定精選作品
	if claims.UserType != models.UserTypeAdmin {
		c.Status(http.StatusForbidden)
		return
	}
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return
	}
	// 單一語句的原子翻轉，並發的切換不會彼此蓋掉
	result := impl.db.Model(&models.Artwork{}).
		Where("id = ?", artworkID).
		Update("featured", gorm.Expr("NOT featured"))
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to toggle featured, err=%w", op, result.Error))
		return
	}
	if result.RowsAffected == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	// 回傳重新讀取的狀態而不是推測值
	artwork := models.Artwork{ID: artworkID}
	if result := impl.db.First(&artwork); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to reload artwork, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{"featured": artwork.Featured})
}

type ArtistResponse struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"fullName"`
	ArtistCedula string    `json:"artistCedula,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
}

// List artists
// (GET /artists)
func (impl *ServerImpl) GetArtists(c *gin.Context) {
	const op = "GetArtists"
	var artists []models.User
	result := impl.db.
		Where("user_type = ?", models.UserTypeArtist).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "full_name"}}).
		Find(&artists)
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list artists, err=%w", op, result.Error))
		return
	}
	output := make([]ArtistResponse, len(artists))
	for i, artist := range artists {
		output[i] = ArtistResponse{
			ID:           artist.ID,
			FullName:     artist.FullName,
			ArtistCedula: artist.ArtistCedula,
			AvatarURL:    artist.AvatarURL,
		}
	}
	c.JSON(http.StatusOK, output)
}

// List active artworks of one artist
// (GET /artists/{artistID}/artworks)
func (impl *ServerImpl) GetArtistArtworks(c *gin.Context) {
	const op = "GetArtistArtworks"
	artistID, err := uuid.Parse(c.Param("artistID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artist id"})
		return
	}
	var artworks []models.Artwork
	result := impl.db.
		Preload("Artist").
		Where("artist_id = ? AND status = ?", artistID, models.ArtworkStatusActive).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&artworks)
	if result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to list artist artworks, err=%w", op, result.Error))
		return
	}
	output := make([]ArtworkResponse, len(artworks))
	for i := range artworks {
		output[i] = toArtworkResponse(&artworks[i])
	}
	c.JSON(http.StatusOK, output)
}

// loadOwnedArtwork 解析路徑中的作品ID並檢查操作權限(作品擁有者或管理員)。
// done為true時表示已寫入回應，呼叫端應直接返回。
func (impl *ServerImpl) loadOwnedArtwork(c *gin.Context, op string) (*models.Artwork, *Claims, bool) {
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return nil, nil, true
	}
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid artwork id"})
		return nil, nil, true
	}
	artwork := models.Artwork{ID: artworkID}
	if result := impl.db.First(&artwork); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return nil, nil, true
		}
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to find artwork, err=%w", op, result.Error))
		return nil, nil, true
	}
	if claims.UserType != models.UserTypeAdmin && artwork.ArtistID.String() != claims.Subject {
		c.Status(http.StatusForbidden)
		return nil, nil, true
	}
	return &artwork, claims, false
}
