package s3

import (
	"fmt"
	"io"
)

// ErrReachLimitType 供 errors.As 使用的型別目標
var ErrReachLimitType *ReachLimitError

type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewMaxSizeReader 包裝 r，累計讀取超過 maxSize 時回傳 ReachLimitError。
// 與 io.LimitReader 不同，超限是錯誤而不是靜默的 EOF，
// 讓上傳流程能把「檔案太大」與「檔案剛好讀完」區分開來。
func NewMaxSizeReader(r io.Reader, maxSize int64) io.Reader {
	return &maxSizeReader{reader: r, limit: maxSize, remain: maxSize}
}

type maxSizeReader struct {
	reader io.Reader
	limit  int64 // 允許的總長度
	remain int64 // 尚可讀取的長度
}

func (r *maxSizeReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// 多讀一個 byte 才能區分「剛好到上限」與「真的超過」
	if int64(len(p)) > r.remain+1 {
		p = p[:r.remain+1]
	}
	n, err = r.reader.Read(p)

	if int64(n) <= r.remain {
		r.remain -= int64(n)
		return n, err
	}

	// 超出的那個 byte 不交給呼叫端
	n = int(r.remain)
	r.remain = 0
	return n, &ReachLimitError{r.limit}
}
