package s3

// secureMIMETypesExtension 列出允許上傳的影像格式與對應副檔名。
// 刻意排除 svg，避免上傳帶腳本的向量圖。
var secureMIMETypesExtension = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension 依偵測到的 MIME 類型判斷是否允許上傳，
// 允許時回傳儲存用的副檔名。
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	ext, ok := secureMIMETypesExtension[mimeType]
	return ok, ext
}
