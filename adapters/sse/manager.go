package sse

import (
	"context"
	"log/slog"
	"sync"
)

// IPublisher 是下游訊息出口的最小介面，
// 由 adapters/redis 的 stream Producer 實作
type IPublisher[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// connectionManager 管理多個 SSE 頻道的訂閱與發布。
// 當設定了 subscriber/publisher 時，透過 Redis Stream 實現跨節點的訊息廣播，
// 讓多個服務實例能夠協同運作；未設定時則退化為單節點的本地廣播。
type connectionManager[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex   // 保護 active 和 channels 的讀寫
	wg     sync.WaitGroup // 用於等待所有 goroutine 完成
	active bool           // 標記 manager 是否正在運作中

	subscriber ISubscriber[PublishRequest[T]] // 接收跨節點訊息的上游來源
	publisher  IPublisher[PublishRequest[T]]  // 發送跨節點訊息的下游出口
	channels   map[string]IChannel[T]         // 儲存所有活躍的頻道
}

type ManagerOption[T any] func(*connectionManager[T])

// WithLogger 設定連線管理器使用的 logger。
func WithLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(cm *connectionManager[T]) {
		if logger != nil {
			cm.logger = logger.With("Caller", "ConnectionManager")
		}
	}
}

// WithSubscriber 設定跨節點訊息的上游來源。
func WithSubscriber[T any](subscriber ISubscriber[PublishRequest[T]]) ManagerOption[T] {
	return func(cm *connectionManager[T]) {
		cm.subscriber = subscriber
	}
}

// WithPublisher 設定跨節點訊息的下游出口。
func WithPublisher[T any](publisher IPublisher[PublishRequest[T]]) ManagerOption[T] {
	return func(cm *connectionManager[T]) {
		cm.publisher = publisher
	}
}

// NewConnectionManager 建立一個新的連線管理器。
func NewConnectionManager[T any](opts ...ManagerOption[T]) IConnectionManager[T] {
	ctx, cancel := context.WithCancel(context.Background())
	cm := &connectionManager[T]{
		ctx:      ctx,
		cancel:   cancel,
		logger:   slog.Default().With("Caller", "ConnectionManager"),
		channels: make(map[string]IChannel[T]),
		active:   true,
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Start 啟動連線管理器，開始處理訊息的接收與廣播。
// 應在呼叫其他方法前先呼叫此方法。
func (cm *connectionManager[T]) Start() {
	if cm.publisher != nil {
		cm.publisher.Start()
	}
	if cm.subscriber == nil {
		return
	}
	cm.subscriber.Start()

	// 啟動訊息處理的 goroutine
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		for msg := range cm.subscriber.Subscribe() {
			cm.mu.RLock()
			if channel, ok := cm.channels[msg.Channel]; ok {
				channel.Broadcast(msg.Message)
			}
			cm.mu.RUnlock()
		}
	}()
}

// Done 停止連線管理器的運作。
func (cm *connectionManager[T]) Done() {
	cm.mu.Lock()
	if !cm.active {
		cm.mu.Unlock()
		return
	}
	cm.active = false
	cm.mu.Unlock()

	cm.cancel()
	if cm.subscriber != nil {
		cm.subscriber.Close()
	}
	if cm.publisher != nil {
		cm.publisher.Close()
	}
	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

// Subscribe 訂閱指定的頻道。
// channelName: 要訂閱的頻道名稱
// 返回: 用於接收訊息的唯讀通道，以及可能的錯誤
func (cm *connectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.active {
		return nil, context.Canceled
	}

	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T]()
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

// Publish 發布訊息到指定的頻道。
// 設定了 publisher 時會經由 Redis Stream 繞行一圈，讓所有節點都收到訊息；
// 否則直接廣播給本地的訂閱者。
func (cm *connectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.active {
		return context.Canceled
	}

	if cm.publisher != nil {
		return cm.publisher.Publish(PublishRequest[T]{
			Channel: channelName,
			Message: data,
		})
	}

	channel, ok := cm.channels[channelName]
	if !ok {
		return nil
	}
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		channel.Broadcast(data)
	}()
	return nil
}

// Unsubscribe 取消訂閱指定的頻道。
func (cm *connectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
