package client

import (
	"context"
	"testing"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus 記錄訂閱/退訂順序的in-memory bus
type fakeBus struct {
	ops      []string
	handlers map[string]func(domain.Event)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[string]func(domain.Event){}}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, event domain.EventType, payload interface{}) error {
	env, err := domain.NewEvent(event, payload)
	if err != nil {
		return err
	}
	if handler, ok := b.handlers[channel]; ok {
		handler(env)
	}
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string, events []domain.EventType, handler func(domain.Event)) (repository.Subscription, error) {
	b.ops = append(b.ops, "subscribe:"+channel)
	b.handlers[channel] = handler
	return &fakeSubscription{bus: b, channel: channel}, nil
}

func (b *fakeBus) Close() {}

type fakeSubscription struct {
	bus     *fakeBus
	channel string
}

func (s *fakeSubscription) Channel() string { return s.channel }

func (s *fakeSubscription) Close() {
	s.bus.ops = append(s.bus.ops, "close:"+s.channel)
	if s.bus.handlers[s.channel] != nil {
		delete(s.bus.handlers, s.channel)
	}
}

// 測試 start訂閱user channel,事件進到onNotify
func TestSession_Start(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	bus := newFakeBus()

	var notified []domain.Event
	s := NewSession(userID, bus, func(e domain.Event) { notified = append(notified, e) }, nil)
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, []string{"subscribe:" + domain.UserChannel(userID)}, bus.ops)

	notify := domain.NewMessageNotification{ConversationID: "c-1"}
	require.NoError(t, bus.Publish(ctx, domain.UserChannel(userID), domain.EventNewMessageNotify, notify))
	assert.Len(t, notified, 1)
}

// 測試 切換聊天室時先退訂舊channel再訂新channel
func TestSession_SwitchConversation_UnsubscribeFirst(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	bus := newFakeBus()

	s := NewSession(userID, bus, nil, nil)
	require.NoError(t, s.Start(ctx))

	_, err := s.SwitchConversation(ctx, "conv-a", nil)
	require.NoError(t, err)
	_, err = s.SwitchConversation(ctx, "conv-b", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"subscribe:" + domain.UserChannel(userID),
		"subscribe:" + domain.ConversationChannel("conv-a"),
		"close:" + domain.ConversationChannel("conv-a"),
		"subscribe:" + domain.ConversationChannel("conv-b"),
	}, bus.ops)
	assert.Equal(t, "conv-b", s.ActiveConversation())

	// 舊channel的事件不會再進到新reconciler
	old := domain.Message{ID: "m-old", SenderID: "other", Content: "late", CreatedAt: 1}
	require.NoError(t, bus.Publish(ctx, domain.ConversationChannel("conv-a"), domain.EventMessageNew, old))
	assert.Empty(t, s.Reconciler().Messages())
}

// 測試 進聊天室後推播事件餵進reconciler
func TestSession_ConversationEventsReachReconciler(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	bus := newFakeBus()

	s := NewSession(userID, bus, nil, nil)
	require.NoError(t, s.Start(ctx))

	history := []domain.Message{{ID: "m-1", SenderID: "other", Content: "hi", CreatedAt: 100}}
	rec, err := s.SwitchConversation(ctx, "conv-a", history)
	require.NoError(t, err)
	assert.Len(t, rec.Messages(), 1)

	incoming := domain.Message{ID: "m-2", SenderID: "other", Content: "yo", CreatedAt: time.Now().UnixMilli()}
	require.NoError(t, bus.Publish(ctx, domain.ConversationChannel("conv-a"), domain.EventMessageNew, incoming))

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m-2", msgs[1].ID)
}

// 測試 重連後rebind並觸發resync
func TestSession_Resubscribe(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	bus := newFakeBus()

	var resynced []string
	s := NewSession(userID, bus, nil, func(conversationID string) { resynced = append(resynced, conversationID) })
	require.NoError(t, s.Start(ctx))
	_, err := s.SwitchConversation(ctx, "conv-a", nil)
	require.NoError(t, err)

	require.NoError(t, s.Resubscribe(ctx))

	assert.Equal(t, []string{"conv-a"}, resynced)
	assert.Contains(t, bus.ops, "subscribe:"+domain.ConversationChannel("conv-a"))
}

// 測試 close退訂所有channel並清空狀態
func TestSession_Close(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()
	bus := newFakeBus()

	s := NewSession(userID, bus, nil, nil)
	require.NoError(t, s.Start(ctx))
	_, err := s.SwitchConversation(ctx, "conv-a", nil)
	require.NoError(t, err)

	s.Close()

	assert.Contains(t, bus.ops, "close:"+domain.ConversationChannel("conv-a"))
	assert.Contains(t, bus.ops, "close:"+domain.UserChannel(userID))
	assert.Empty(t, s.ActiveConversation())
	assert.Nil(t, s.Reconciler())
}
