package repository

import (
	"context"
	"encoding/json"
	"sync"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Subscription one active channel binding, Close is synchronous
type Subscription interface {
	Channel() string
	Close()
}

// ChannelBus definition the pub/sub transport seam
// (at-least-once,單一channel內依發布順序,跨channel無序)
type ChannelBus interface {
	Publish(ctx context.Context, channel string, event domain.EventType, payload interface{}) error
	// Subscribe 綁定channel上的指定事件,events為空表示全收。
	// 同一個bus對同一channel重複Subscribe會先解除舊綁定,不會重複派送。
	Subscribe(ctx context.Context, channel string, events []domain.EventType, handler func(domain.Event)) (Subscription, error)
	// Close 登出/關機時解除所有訂閱
	Close()
}

type redisChannelBus struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[string]*redisSubscription
}

// NewRedisChannelBus create ChannelBus on redis pub/sub
func NewRedisChannelBus(client *redis.Client) ChannelBus {
	return &redisChannelBus{
		client: client,
		subs:   make(map[string]*redisSubscription),
	}
}

// Publish 將payload包進事件信封後發布
func (b *redisChannelBus) Publish(ctx context.Context, channel string, event domain.EventType, payload interface{}) error {
	env, err := domain.NewEvent(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

func (b *redisChannelBus) Subscribe(ctx context.Context, channel string, events []domain.EventType, handler func(domain.Event)) (Subscription, error) {
	// 先拆掉同channel的舊訂閱,重連後rebind才不會重複收
	b.mu.Lock()
	old := b.subs[channel]
	delete(b.subs, channel)
	b.mu.Unlock()
	if old != nil {
		old.Close()
	}

	pubsub := b.client.Subscribe(ctx, channel)
	// 確認訂閱建立成功再返回handle
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	bound := make(map[domain.EventType]bool, len(events))
	for _, e := range events {
		bound[e] = true
	}

	sub := &redisSubscription{
		bus:     b,
		channel: channel,
		pubsub:  pubsub,
		done:    make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[channel] = sub
	b.mu.Unlock()

	go func() {
		defer close(sub.done)
		for m := range pubsub.Channel() {
			var ev domain.Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				logger.Log.Error("channel bus decode event failed",
					zap.String("channel", channel), zap.Error(err))
				continue
			}
			if len(bound) > 0 && !bound[ev.Type] {
				continue
			}
			handler(ev)
		}
	}()

	return sub, nil
}

func (b *redisChannelBus) Close() {
	b.mu.Lock()
	subs := make([]*redisSubscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

type redisSubscription struct {
	bus     *redisChannelBus
	channel string
	pubsub  *redis.PubSub
	done    chan struct{}
	once    sync.Once
}

func (s *redisSubscription) Channel() string {
	return s.channel
}

// Close 同步解除訂閱,返回後保證不再派送事件
func (s *redisSubscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if s.bus.subs[s.channel] == s {
			delete(s.bus.subs, s.channel)
		}
		s.bus.mu.Unlock()

		// 關閉pubsub會結束pump goroutine,等它收尾
		if err := s.pubsub.Close(); err != nil {
			logger.Log.Error("channel bus close failed",
				zap.String("channel", s.channel), zap.Error(err))
		}
		<-s.done
	})
}
