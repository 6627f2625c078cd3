package sse_test

import (
	"io"
	"log"
)

func init() {
	// 測試時靜音預設 logger
	log.SetOutput(io.Discard)
}

// bidPayload 模擬一筆要推播給前端的出價事件。
type bidPayload struct {
	Amount int64  `json:"amount"`
	Bidder string `json:"bidder"`
}
