package app

import (
	"context"
	"testing"
	"time"

	"job_board_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newMessageUseCaseForTest(
	convRepo *MockConversationRepository,
	msgRepo *MockMessageRepository,
	userRepo *MockUserRepository,
	bus *MockChannelBus,
	cache *MockUnreadCache,
) *MessageUseCase {
	unread := NewUnreadUseCase(convRepo, msgRepo, cache)
	return NewMessageUseCase(convRepo, msgRepo, userRepo, bus, unread)
}

// 測試 Send 完整pipeline:驗證→寫入→touch→fan-out→未讀遞增
func TestMessageUseCase_Send(t *testing.T) {
	ctx := context.Background()
	conversationID := uuid.New().String()
	senderID := uuid.New().String()
	otherID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockUserRepo := new(MockUserRepository)
	mockBus := new(MockChannelBus)
	mockCache := new(MockUnreadCache)

	conv := &domain.Conversation{
		ID:   conversationID,
		Kind: domain.KindDirect,
		Participants: []domain.Participant{
			{UserID: senderID},
			{UserID: otherID},
		},
	}
	mockConvRepo.On("FindByID", ctx, conversationID).Return(conv, nil)
	mockUserRepo.On("FindByID", ctx, senderID).Return(&domain.User{ID: senderID, Name: "Alice"}, nil)
	mockMsgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	mockConvRepo.On("Touch", ctx, conversationID, mock.AnythingOfType("int64")).Return(nil)

	// 聊天室channel收message:new,其他成員的user channel收notification
	mockBus.On("Publish", ctx, domain.ConversationChannel(conversationID), domain.EventMessageNew, mock.Anything).Return(nil)
	mockBus.On("Publish", ctx, domain.UserChannel(otherID), domain.EventNewMessageNotify, mock.Anything).Return(nil)
	mockCache.On("Incr", ctx, otherID, conversationID).Return(nil)

	uc := newMessageUseCaseForTest(mockConvRepo, mockMsgRepo, mockUserRepo, mockBus, mockCache)
	msg, err := uc.Send(ctx, conversationID, senderID, "  hello  ", nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, domain.MessageText, msg.Type)
	assert.NotZero(t, msg.CreatedAt)

	mockConvRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
	mockBus.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	// sender自己的user channel不收通知,未讀也不遞增
	mockBus.AssertNotCalled(t, "Publish", ctx, domain.UserChannel(senderID), domain.EventNewMessageNotify, mock.Anything)
	mockCache.AssertNotCalled(t, "Incr", ctx, senderID, conversationID)
}

// 測試 Send 空白內容且無附件直接擋下
func TestMessageUseCase_Send_EmptyContent(t *testing.T) {
	ctx := context.Background()
	conversationID := uuid.New().String()
	senderID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	conv := &domain.Conversation{
		ID:           conversationID,
		Participants: []domain.Participant{{UserID: senderID}},
	}
	mockConvRepo.On("FindByID", ctx, conversationID).Return(conv, nil)

	uc := newMessageUseCaseForTest(mockConvRepo, new(MockMessageRepository), new(MockUserRepository), new(MockChannelBus), new(MockUnreadCache))
	msg, err := uc.Send(ctx, conversationID, senderID, "   ", nil)

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

// 測試 Send 只帶附件不帶文字是合法的,型別依副檔名
func TestMessageUseCase_Send_AttachmentOnly(t *testing.T) {
	ctx := context.Background()
	conversationID := uuid.New().String()
	senderID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockUserRepo := new(MockUserRepository)
	mockBus := new(MockChannelBus)
	mockCache := new(MockUnreadCache)

	conv := &domain.Conversation{
		ID:           conversationID,
		Participants: []domain.Participant{{UserID: senderID}},
	}
	mockConvRepo.On("FindByID", ctx, conversationID).Return(conv, nil)
	mockUserRepo.On("FindByID", ctx, senderID).Return(&domain.User{ID: senderID}, nil)
	mockMsgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	mockConvRepo.On("Touch", ctx, conversationID, mock.AnythingOfType("int64")).Return(nil)
	mockBus.On("Publish", ctx, domain.ConversationChannel(conversationID), domain.EventMessageNew, mock.Anything).Return(nil)

	uc := newMessageUseCaseForTest(mockConvRepo, mockMsgRepo, mockUserRepo, mockBus, mockCache)
	msg, err := uc.Send(ctx, conversationID, senderID, "", &domain.Attachment{
		URL:      "https://cdn.example.com/x/resume.PNG",
		Filename: "resume.PNG",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.MessageImage, msg.Type)
}

// 測試 Send 非成員不可發訊息
func TestMessageUseCase_Send_NotParticipant(t *testing.T) {
	ctx := context.Background()
	conversationID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	conv := &domain.Conversation{
		ID:           conversationID,
		Participants: []domain.Participant{{UserID: uuid.New().String()}},
	}
	mockConvRepo.On("FindByID", ctx, conversationID).Return(conv, nil)

	uc := newMessageUseCaseForTest(mockConvRepo, new(MockMessageRepository), new(MockUserRepository), new(MockChannelBus), new(MockUnreadCache))
	msg, err := uc.Send(ctx, conversationID, uuid.New().String(), "hello", nil)

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

// 測試 Edit 只有原sender可改,改完推message:edited
func TestMessageUseCase_Edit(t *testing.T) {
	ctx := context.Background()
	messageID := uuid.New().String()
	senderID := uuid.New().String()
	conversationID := uuid.New().String()

	mockMsgRepo := new(MockMessageRepository)
	mockBus := new(MockChannelBus)

	stored := &domain.Message{
		ID:             messageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        "old",
		CreatedAt:      time.Now().UnixMilli(),
	}
	mockMsgRepo.On("FindByID", ctx, messageID).Return(stored, nil)
	mockMsgRepo.On("SetContent", ctx, messageID, "new", mock.AnythingOfType("int64")).Return(nil)
	mockBus.On("Publish", ctx, domain.ConversationChannel(conversationID), domain.EventMessageEdited, mock.Anything).Return(nil)

	uc := newMessageUseCaseForTest(new(MockConversationRepository), mockMsgRepo, new(MockUserRepository), mockBus, new(MockUnreadCache))
	msg, err := uc.Edit(ctx, messageID, senderID, "new")

	assert.NoError(t, err)
	assert.Equal(t, "new", msg.Content)
	assert.NotNil(t, msg.EditedAt)

	mockMsgRepo.AssertExpectations(t)
	mockBus.AssertExpectations(t)
}

// 測試 Edit 別人的訊息回傳forbidden
func TestMessageUseCase_Edit_Forbidden(t *testing.T) {
	ctx := context.Background()
	messageID := uuid.New().String()

	mockMsgRepo := new(MockMessageRepository)
	stored := &domain.Message{ID: messageID, SenderID: uuid.New().String(), Content: "x"}
	mockMsgRepo.On("FindByID", ctx, messageID).Return(stored, nil)

	uc := newMessageUseCaseForTest(new(MockConversationRepository), mockMsgRepo, new(MockUserRepository), new(MockChannelBus), new(MockUnreadCache))
	msg, err := uc.Edit(ctx, messageID, uuid.New().String(), "new")

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// 測試 Delete soft delete後推message:deleted,已刪的當not found
func TestMessageUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	messageID := uuid.New().String()
	senderID := uuid.New().String()
	conversationID := uuid.New().String()

	mockMsgRepo := new(MockMessageRepository)
	mockBus := new(MockChannelBus)

	stored := &domain.Message{ID: messageID, ConversationID: conversationID, SenderID: senderID, Content: "x"}
	mockMsgRepo.On("FindByID", ctx, messageID).Return(stored, nil).Once()
	mockMsgRepo.On("SoftDelete", ctx, messageID, mock.AnythingOfType("int64")).Return(nil)
	mockBus.On("Publish", ctx, domain.ConversationChannel(conversationID), domain.EventMessageDeleted, mock.Anything).Return(nil)

	uc := newMessageUseCaseForTest(new(MockConversationRepository), mockMsgRepo, new(MockUserRepository), mockBus, new(MockUnreadCache))
	assert.NoError(t, uc.Delete(ctx, messageID, senderID))

	deletedAt := time.Now().UnixMilli()
	gone := &domain.Message{ID: messageID, SenderID: senderID, DeletedAt: &deletedAt}
	mockMsgRepo.On("FindByID", ctx, messageID).Return(gone, nil).Once()
	assert.ErrorIs(t, uc.Delete(ctx, messageID, senderID), domain.ErrMessageNotFound)

	mockMsgRepo.AssertExpectations(t)
	mockBus.AssertExpectations(t)
}

// 測試 History caller必須是成員,分頁參數會正規化
func TestMessageUseCase_History(t *testing.T) {
	ctx := context.Background()
	conversationID := uuid.New().String()
	userID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)

	conv := &domain.Conversation{
		ID:           conversationID,
		Participants: []domain.Participant{{UserID: userID}},
	}
	mockConvRepo.On("FindByID", ctx, conversationID).Return(conv, nil)

	history := []domain.Message{
		{ID: "m1", CreatedAt: 1},
		{ID: "m2", CreatedAt: 2},
	}
	// page/limit超界時退回預設值
	mockMsgRepo.On("ListByConversation", ctx, conversationID, 1, 20).Return(history, nil)

	uc := newMessageUseCaseForTest(mockConvRepo, mockMsgRepo, new(MockUserRepository), new(MockChannelBus), new(MockUnreadCache))
	msgs, err := uc.History(ctx, conversationID, userID, 0, -5)

	assert.NoError(t, err)
	assert.Equal(t, history, msgs)
	mockMsgRepo.AssertExpectations(t)
}
