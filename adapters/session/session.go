package session

import (
	"context"
	"fmt"
)

// sessionImpl 以 lazy-load 的方式包裝 IStore：
// 第一次 Load 之後所有讀寫都發生在記憶體，直到 Save 才寫回儲存層。
type sessionImpl struct {
	id    string
	ctx   context.Context
	data  map[string]string
	store IStore
}

func NewSession(ctx context.Context, id string, store IStore) ISession {
	if ctx == nil {
		ctx = context.Background()
	}
	return &sessionImpl{
		id:    id,
		ctx:   ctx,
		store: store,
	}
}

// Load 從儲存層載入資料，已載入過則為 no-op。
// 不存在的 session 載入後是空 map，不是錯誤。
func (s *sessionImpl) Load() error {
	const op = "sessionImpl.Load"
	if s.data != nil {
		return nil
	}

	data, err := s.store.Load(s.ctx, s.id)
	if err != nil {
		return fmt.Errorf("[%s] Fail to load session data, err=%w", op, err)
	}
	if data == nil {
		data = make(map[string]string)
	}
	s.data = data
	return nil
}

// Get 在未 Load 的情況下一律回傳空字串。
func (s *sessionImpl) Get(key string) string {
	if s.data == nil {
		return ""
	}
	return s.data[key]
}

func (s *sessionImpl) Set(key string, value string) {
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.data[key] = value
}

func (s *sessionImpl) Delete(key string) {
	if s.data != nil {
		delete(s.data, key)
	}
}

func (s *sessionImpl) Clear() {
	s.data = make(map[string]string)
}

// Save 將目前的資料寫回儲存層，未曾載入或修改過則跳過。
func (s *sessionImpl) Save() error {
	const op = "sessionImpl.Save"
	if s.data == nil {
		return nil
	}
	if err := s.store.Save(s.ctx, s.id, s.data); err != nil {
		return fmt.Errorf("[%s] Fail to save session data, err=%w", op, err)
	}
	return nil
}
