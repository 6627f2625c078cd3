package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LENINALX/vinculacion/adapters/session"
)

// Store 以 redis hash 實作 session.IStore，
// 一個 session 對應一個 hash key。
type Store struct {
	client  *redis.Client
	options StoreOptions
}

type StoreOptions struct {
	Prefix string
	// Expiry 為 0 時 session key 不過期
	Expiry time.Duration
}

type StoreOption func(*StoreOptions)

// WithStorePrefix 設定 session key 的前綴
func WithStorePrefix(prefix string) StoreOption {
	return func(o *StoreOptions) {
		o.Prefix = prefix
	}
}

// WithStoreExpiry 設定 session key 的存活時間，
// 通常與 cookie 的 MaxAge 對齊，讓放棄的 session 能自動回收。
func WithStoreExpiry(expiry time.Duration) StoreOption {
	return func(o *StoreOptions) {
		o.Expiry = expiry
	}
}

func NewStore(client *redis.Client, opts ...StoreOption) session.IStore {
	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return &Store{
		client:  client,
		options: *options,
	}
}

// Load 讀取整個 session hash，key 不存在時回傳空 map
func (s *Store) Load(ctx context.Context, name string) (map[string]string, error) {
	const op = "redis.Store.Load"
	key := s.options.Prefix + name

	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get session hash, err=%w", op, err)
	}

	return result, nil
}

// saveScript 原子性地以新資料整批覆蓋舊 hash，
// 避免 DEL 與 HSET 之間被其他請求讀到半套狀態。
var saveScript = redis.NewScript(`
local key = KEYS[1]
local expire = tonumber(ARGV[1])
redis.call('DEL', key)
if #ARGV > 1 then
    redis.call('HSET', key, unpack(ARGV, 2))
    if expire > 0 then
        redis.call('EXPIRE', key, expire)
    end
end
return 1
`)

// Save 將 session 資料整批寫回，並套用設定的存活時間。
func (s *Store) Save(ctx context.Context, name string, data map[string]string) error {
	const op = "redis.Store.Save"
	key := s.options.Prefix + name

	args := make([]any, 0, len(data)*2+1)
	args = append(args, int64(s.options.Expiry/time.Second))
	for k, v := range data {
		args = append(args, k, v)
	}
	if err := saveScript.Run(ctx, s.client, []string{key}, args...).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to execute save script, err=%w", op, err)
	}

	return nil
}
