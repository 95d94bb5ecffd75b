package client

import (
	"testing"
	"time"

	"job_board_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, eventType domain.EventType, msg domain.Message) domain.Event {
	t.Helper()
	event, err := domain.NewEvent(eventType, msg)
	require.NoError(t, err)
	return event
}

// 測試 樂觀送出後收到自己的推播,畫面上永遠只有一筆
func TestReconciler_OptimisticSendSingleEntry(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	tempKey := r.Submit("hello", "nonce-1")
	assert.Len(t, r.Messages(), 1)
	assert.Equal(t, StatePending, r.Entries()[0].State)

	serverMsg := domain.Message{
		ID:        uuid.New().String(),
		SenderID:  selfID,
		Content:   "hello",
		CreatedAt: time.Now().UnixMilli(),
	}
	event := mustEvent(t, domain.EventMessageNew, serverMsg)
	r.Apply(event)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StateConfirmed, entries[0].State)
	assert.Equal(t, serverMsg.ID, entries[0].Message.ID)

	// 同一事件重複套用idempotent
	r.Apply(event)
	assert.Len(t, r.Entries(), 1)

	// pipeline回應比推播晚到,confirm也不會多出entry
	r.ConfirmSend(tempKey, &serverMsg)
	assert.Len(t, r.Entries(), 1)
}

// 測試 pipeline回應先到,推播後到,一樣只有一筆
func TestReconciler_ConfirmThenPush(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	tempKey := r.Submit("hi there", "nonce-1")
	serverMsg := domain.Message{
		ID:        uuid.New().String(),
		SenderID:  selfID,
		Content:   "hi there",
		CreatedAt: time.Now().UnixMilli(),
	}
	r.ConfirmSend(tempKey, &serverMsg)

	r.Apply(mustEvent(t, domain.EventMessageNew, serverMsg))

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, serverMsg.ID, entries[0].Message.ID)
}

// 測試 同內容連發兩筆,各自對上自己的server訊息
func TestReconciler_DuplicateContentQueue(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	key1 := r.Submit("ok", "nonce-1")
	key2 := r.Submit("ok", "nonce-2")
	assert.NotEqual(t, key1, key2)
	assert.Len(t, r.Messages(), 2)

	base := time.Now().UnixMilli()
	first := domain.Message{ID: "m-1", SenderID: selfID, Content: "ok", CreatedAt: base}
	second := domain.Message{ID: "m-2", SenderID: selfID, Content: "ok", CreatedAt: base + 10}

	r.Apply(mustEvent(t, domain.EventMessageNew, first))
	r.Apply(mustEvent(t, domain.EventMessageNew, second))

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, StateConfirmed, entries[0].State)
	assert.Equal(t, StateConfirmed, entries[1].State)
}

// 測試 重複submit同一筆(同nonce)沿用原entry
func TestReconciler_SubmitIdempotent(t *testing.T) {
	r := NewReconciler(uuid.New().String())

	key1 := r.Submit("hello", "nonce-1")
	key2 := r.Submit("hello", "nonce-1")

	assert.Equal(t, key1, key2)
	assert.Len(t, r.Messages(), 1)
}

// 測試 失敗→retry→成功的完整流程
func TestReconciler_FailRetryConfirm(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	tempKey := r.Submit("try me", "nonce-1")
	r.FailSend(tempKey)
	require.Equal(t, StateFailed, r.Entries()[0].State)

	// failed不參與推播比對,別人看不到的訊息不能被confirm
	stray := domain.Message{ID: "m-x", SenderID: selfID, Content: "try me", CreatedAt: time.Now().UnixMilli()}
	r.Apply(mustEvent(t, domain.EventMessageNew, stray))
	entries := r.Entries()
	require.Len(t, entries, 2)

	assert.True(t, r.Retry(tempKey))
	serverMsg := domain.Message{ID: "m-y", SenderID: selfID, Content: "try me", CreatedAt: time.Now().UnixMilli()}
	r.ConfirmSend(tempKey, &serverMsg)

	var states []EntryState
	for _, e := range r.Entries() {
		states = append(states, e.State)
	}
	assert.Equal(t, []EntryState{StateConfirmed, StateConfirmed}, states)
}

// 測試 discard把failed entry從畫面移除
func TestReconciler_Discard(t *testing.T) {
	r := NewReconciler(uuid.New().String())

	tempKey := r.Submit("oops", "nonce-1")
	r.FailSend(tempKey)
	r.Discard(tempKey)

	assert.Empty(t, r.Messages())
	// 重複discard no-op
	r.Discard(tempKey)
	assert.False(t, r.Retry(tempKey))
}

// 測試 edit/delete事件就地修改,未知id no-op
func TestReconciler_EditDeleteEvents(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	otherID := uuid.New().String()
	msg := domain.Message{ID: "m-1", SenderID: otherID, Content: "v1", CreatedAt: 100}
	r.Apply(mustEvent(t, domain.EventMessageNew, msg))

	editedAt := int64(200)
	edited := msg
	edited.Content = "v2"
	edited.EditedAt = &editedAt
	r.Apply(mustEvent(t, domain.EventMessageEdited, edited))

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", entries[0].Message.Content)
	require.NotNil(t, entries[0].Message.EditedAt)

	// 未知id的edit不會長出新entry
	ghost := domain.Message{ID: "ghost", SenderID: otherID, Content: "x"}
	r.Apply(mustEvent(t, domain.EventMessageEdited, ghost))
	assert.Len(t, r.Entries(), 1)

	deletedAt := int64(300)
	deleted := msg
	deleted.DeletedAt = &deletedAt
	r.Apply(mustEvent(t, domain.EventMessageDeleted, deleted))
	assert.True(t, r.Entries()[0].Message.Deleted())
}

// 測試 排序:confirmed依server時間,pending依本地時間接在後面
func TestReconciler_Ordering(t *testing.T) {
	selfID := uuid.New().String()
	r := NewReconciler(selfID)

	r.Seed([]domain.Message{
		{ID: "m-2", SenderID: "other", Content: "b", CreatedAt: 200},
		{ID: "m-1", SenderID: "other", Content: "a", CreatedAt: 100},
	})
	r.Submit("c", "nonce-1")

	msgs := r.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m-1", msgs[0].ID)
	assert.Equal(t, "m-2", msgs[1].ID)
	assert.Equal(t, "c", msgs[2].Content)

	// 同一毫秒用id決勝負,順序穩定
	r.Seed([]domain.Message{
		{ID: "m-0", SenderID: "other", Content: "tie", CreatedAt: 100},
	})
	msgs = r.Messages()
	assert.Equal(t, "m-0", msgs[0].ID)
	assert.Equal(t, "m-1", msgs[1].ID)
}

// 測試 seed重複id去重
func TestReconciler_SeedDedup(t *testing.T) {
	r := NewReconciler(uuid.New().String())

	history := []domain.Message{
		{ID: "m-1", Content: "a", CreatedAt: 100},
		{ID: "m-1", Content: "a", CreatedAt: 100},
	}
	r.Seed(history)
	r.Seed(history)

	assert.Len(t, r.Messages(), 1)
}

// 測試 不相干的事件型別直接忽略
func TestReconciler_IgnoresUnrelatedEvents(t *testing.T) {
	r := NewReconciler(uuid.New().String())

	event, err := domain.NewEvent(domain.EventMemberJoined, domain.MemberChange{ConversationID: "c-1", UserID: "u-1"})
	require.NoError(t, err)
	r.Apply(event)

	assert.Empty(t, r.Messages())
}
