package app

import (
	"context"
	"path"
	"strings"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/pkg"
	"job_board_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageUseCase 負責訊息的驗證/寫入/fan-out
type MessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	bus      repository.ChannelBus
	unread   *UnreadUseCase
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	bus repository.ChannelBus,
	unread *UnreadUseCase,
) *MessageUseCase {
	return &MessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		bus:      bus,
		unread:   unread,
	}
}

// Send validate → persist → touch conversation → fan-out,
// 同步回傳hydrated message給caller
func (uc *MessageUseCase) Send(ctx context.Context, conversationID, senderID, content string, attachment *domain.Attachment) (*domain.Message, error) {
	// 1. sender必須是成員
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, domain.ErrNotParticipant
	}

	// 2. 內容可為空,但僅限有附件時
	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return nil, domain.ErrEmptyMessage
	}

	// 3. sender顯示欄位在寫入前帶齊,推播payload即完整訊息
	sender, err := uc.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderName:     sender.Name,
		SenderAvatar:   sender.Avatar,
		Content:        content,
		Type:           messageTypeOf(attachment),
		Attachment:     attachment,
		// CreatedAt以persistence時間為準,client不決定順序
		CreatedAt: now,
	}

	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := uc.convRepo.Touch(ctx, conv.ID, now); err != nil {
		logger.Log.Error("touch conversation failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	// 4. fan-out,publish失敗不回滾(at-least-once,漏收靠refetch補)
	uc.publish(ctx, domain.ConversationChannel(conv.ID), domain.EventMessageNew, msg)
	notify := domain.NewMessageNotification{ConversationID: conv.ID, Message: *msg}
	for _, p := range conv.Participants {
		if p.UserID == senderID {
			continue
		}
		uc.publish(ctx, domain.UserChannel(p.UserID), domain.EventNewMessageNotify, notify)
	}

	// 5. 未讀cache遞增
	if err := uc.unread.Bump(ctx, conv, msg); err != nil {
		logger.Log.Error("bump unread failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	return msg, nil
}

// Edit 只有原sender可改內容
func (uc *MessageUseCase) Edit(ctx context.Context, messageID, editorID, newContent string) (*domain.Message, error) {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted() {
		return nil, domain.ErrMessageNotFound
	}
	if msg.SenderID != editorID {
		return nil, domain.ErrForbidden
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, domain.ErrEmptyMessage
	}

	now := time.Now().UnixMilli()
	if err := uc.msgRepo.SetContent(ctx, messageID, newContent, now); err != nil {
		return nil, err
	}
	msg.Content = newContent
	msg.EditedAt = &now

	uc.publish(ctx, domain.ConversationChannel(msg.ConversationID), domain.EventMessageEdited, msg)
	return msg, nil
}

// Delete soft delete,只有原sender可刪
func (uc *MessageUseCase) Delete(ctx context.Context, messageID, editorID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Deleted() {
		return domain.ErrMessageNotFound
	}
	if msg.SenderID != editorID {
		return domain.ErrForbidden
	}

	now := time.Now().UnixMilli()
	if err := uc.msgRepo.SoftDelete(ctx, messageID, now); err != nil {
		return err
	}
	msg.DeletedAt = &now

	uc.publish(ctx, domain.ConversationChannel(msg.ConversationID), domain.EventMessageDeleted, msg)
	return nil
}

// History 舊到新分頁,caller必須是成員
func (uc *MessageUseCase) History(ctx context.Context, conversationID, userID string, page, limit int) ([]domain.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	page, limit = normalizePage(page, limit)
	return uc.msgRepo.ListByConversation(ctx, conv.ID, page, limit)
}

func (uc *MessageUseCase) publish(ctx context.Context, channel string, event domain.EventType, payload interface{}) {
	if err := uc.bus.Publish(ctx, channel, event, payload); err != nil {
		logger.Log.Error("publish event failed",
			zap.String("channel", channel),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// messageTypeOf 依附件決定訊息型別,圖片副檔名視為image
func messageTypeOf(attachment *domain.Attachment) domain.MessageType {
	if attachment == nil {
		return domain.MessageText
	}
	if pkg.Contains(imageExtensions, strings.ToLower(path.Ext(attachment.Filename))) {
		return domain.MessageImage
	}
	return domain.MessageFile
}
