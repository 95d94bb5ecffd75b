package client

import (
	"context"
	"sync"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
)

// sessionUserEvents user channel上session關心的事件
var sessionUserEvents = []domain.EventType{
	domain.EventNewMessageNotify,
	domain.EventConversationNew,
	domain.EventMemberJoined,
	domain.EventMemberLeft,
}

// sessionConversationEvents 進入聊天室後餵給reconciler的事件
var sessionConversationEvents = []domain.EventType{
	domain.EventMessageNew,
	domain.EventMessageEdited,
	domain.EventMessageDeleted,
}

// Session 一個user的client端連線狀態:
// user channel長駐,conversation channel跟著畫面切換,一次最多一間。
type Session struct {
	userID string
	bus    repository.ChannelBus

	// onNotify user channel事件(通知/名單異動)交給上層更新列表
	onNotify func(domain.Event)
	// onResync 重綁後可能漏了事件,上層應refetch未讀數與歷史
	onResync func(conversationID string)

	mu           sync.Mutex
	rec          *Reconciler
	activeConvID string
	userSub      repository.Subscription
	convSub      repository.Subscription
}

// NewSession create Session
func NewSession(userID string, bus repository.ChannelBus, onNotify func(domain.Event), onResync func(conversationID string)) *Session {
	if onNotify == nil {
		onNotify = func(domain.Event) {}
	}
	if onResync == nil {
		onResync = func(string) {}
	}
	return &Session{
		userID:   userID,
		bus:      bus,
		onNotify: onNotify,
		onResync: onResync,
	}
}

// Start 訂閱自己的user channel,整個session期間有效
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.bus.Subscribe(ctx, domain.UserChannel(s.userID), sessionUserEvents, s.onNotify)
	if err != nil {
		return err
	}
	if s.userSub != nil {
		s.userSub.Close()
	}
	s.userSub = sub
	return nil
}

// SwitchConversation 切換畫面到另一間聊天室:
// 先同步退訂舊channel(退訂完成前不訂新的,舊事件不會漏進新reconciler),
// 再以history seed新的reconciler並訂閱新channel。
func (s *Session) SwitchConversation(ctx context.Context, conversationID string, history []domain.Message) (*Reconciler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.convSub != nil {
		s.convSub.Close()
		s.convSub = nil
	}

	rec := NewReconciler(s.userID)
	rec.Seed(history)

	sub, err := s.bus.Subscribe(ctx, domain.ConversationChannel(conversationID), sessionConversationEvents, rec.Apply)
	if err != nil {
		s.rec = nil
		s.activeConvID = ""
		return nil, err
	}

	s.rec = rec
	s.activeConvID = conversationID
	s.convSub = sub
	return rec, nil
}

// Resubscribe 斷線重連後重綁所有channel。
// bus對同channel的重複Subscribe會先解除舊綁定,不會重複收,
// 但重綁期間可能漏事件,所以結束後觸發onResync讓上層refetch。
func (s *Session) Resubscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.bus.Subscribe(ctx, domain.UserChannel(s.userID), sessionUserEvents, s.onNotify)
	if err != nil {
		return err
	}
	s.userSub = sub

	if s.activeConvID != "" && s.rec != nil {
		convSub, err := s.bus.Subscribe(ctx, domain.ConversationChannel(s.activeConvID), sessionConversationEvents, s.rec.Apply)
		if err != nil {
			return err
		}
		s.convSub = convSub
		s.onResync(s.activeConvID)
	}
	return nil
}

// ActiveConversation 目前畫面所在的conversation,空字串表示在列表頁
func (s *Session) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConvID
}

// Reconciler 目前聊天室的reconciler,沒進聊天室時為nil
func (s *Session) Reconciler() *Reconciler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Close 登出/關閉頁面時退訂所有channel
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.convSub != nil {
		s.convSub.Close()
		s.convSub = nil
	}
	if s.userSub != nil {
		s.userSub.Close()
		s.userSub = nil
	}
	s.activeConvID = ""
	s.rec = nil
}
