package sse

import (
	"sync"
)

// Channel 代表單一藝術品的出價事件頻道，
// 負責把事件廣播給該藝術品頁面上的所有訂閱者。
type Channel[T any] struct {
	subscribers map[<-chan T]chan<- T
	mu          sync.RWMutex
}

func NewChannel[T any]() IChannel[T] {
	return &Channel[T]{
		subscribers: make(map[<-chan T]chan<- T),
	}
}

// Subscribe 建立新的無緩衝通道並回傳唯讀端，
// 以唯讀端作為 key 讓呼叫者能在之後取消訂閱。
func (c *Channel[T]) Subscribe() <-chan T {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan T)
	c.subscribers[ch] = ch
	return ch
}

// Unsubscribe 移除指定訂閱者並關閉其通道，重複呼叫不會 panic。
func (c *Channel[T]) Unsubscribe(ch <-chan T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if send, exists := c.subscribers[ch]; exists {
		delete(c.subscribers, ch)
		close(send)
	}
}

// UnsubscribeAll 在頻道關閉時踢除所有訂閱者。
func (c *Channel[T]) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, send := range c.subscribers {
		close(send)
	}
	clear(c.subscribers)
}

// Broadcast 逐一送出訊息，訂閱者未讀取前會阻塞整個頻道。
func (c *Channel[T]) Broadcast(message T) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, send := range c.subscribers {
		send <- message
	}
}

func (c *Channel[T]) IsIdle() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers) == 0
}
