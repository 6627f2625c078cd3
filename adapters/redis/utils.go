package redis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// payloadField 是 stream entry 中裝載序列化內容的欄位名稱，
// Lua 腳本端 XADD 時也使用同一個欄位。
const payloadField = "data"

var (
	ErrPointerType = errors.New("pointer type is not allowed")
)

// DefaultParseToMessage 將值序列化為 stream entry：
// msgpack 編碼後再以 base64 放進單一欄位，避免 redis 針對 binary 的轉義問題。
func DefaultParseToMessage[T any](data T) (map[string]any, error) {
	if reflect.TypeOf(data).Kind() == reflect.Ptr {
		return nil, ErrPointerType
	}

	bytes, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}

	return map[string]any{
		payloadField: base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// DefaultParseFromMessage 是 DefaultParseToMessage 的反向操作，
// 空 entry 會還原為零值而非錯誤。
func DefaultParseFromMessage[T any](message map[string]any) (T, error) {
	var result T

	if reflect.TypeOf(result).Kind() == reflect.Ptr {
		return result, ErrPointerType
	}

	if len(message) == 0 {
		return result, nil
	}

	dataStr, ok := message[payloadField].(string)
	if !ok {
		return result, fmt.Errorf("%s field not found or invalid type", payloadField)
	}

	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return result, fmt.Errorf("base64 decode error: %w", err)
	}

	if err := msgpack.Unmarshal(bytes, &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal error: %w", err)
	}

	return result, nil
}
