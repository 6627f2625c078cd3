package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	internalS3 "github.com/LENINALX/vinculacion/adapters/s3"
	"github.com/LENINALX/vinculacion/models"
)

// Upload an image
// (POST /images)
func (impl *ServerImpl) PostImage(c *gin.Context) {
	const op = "PostImage"
	// 檢查使用者是否可以上傳圖片
	claims := impl.currentClaims(c)
	if claims == nil {
		c.Status(http.StatusUnauthorized)
		return
	}
	//  - 檢查是否達到上傳限制
	userID := uuid.MustParse(claims.Subject)
	var uploadedCount int64
	if result := impl.db.Model(&models.Image{}).Where("uploader_id = ? AND created_at > ?", userID, time.Now().Add(-1*time.Hour)).Count(&uploadedCount); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to count uploaded images, err=%w", op, result.Error))
		return
	}
	if impl.config.S3.RateLimitPerHour > 0 && uploadedCount >= impl.config.S3.RateLimitPerHour {
		c.Status(http.StatusTooManyRequests)
		return
	}
	// 限制圖片
	// 	1. 小於5MB
	// 	2. MIME類型為不包含腳本的圖片檔案
	body := internalS3.NewMaxSizeReader(c.Request.Body, 5<<20)
	file, err := io.ReadAll(body)
	if errors.As(err, &internalS3.ErrReachLimitType) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to read image, err=%w", op, err))
		return
	}
	mimeType := http.DetectContentType(file)
	secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: fmt.Sprintf("Invalid image type: %s", mimeType)})
		return
	}
	// 透過S3 API儲存圖片
	url, err := impl.s3Operator.UploadFileToS3(c.Request.Context(), uuid.New().String()+"."+ext, mimeType, file)
	if err != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to upload image, err=%w", op, err))
		return
	}
	// 在DB紀錄圖片的上傳紀錄
	image := models.Image{
		UploaderID: userID,
		Url:        url,
	}
	if result := impl.db.Create(&image); result.Error != nil {
		impl.internalError(c, op, fmt.Errorf("[%s] Fail to create image record, err=%w", op, result.Error))
		return
	}
	c.Header("Location", url)
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
