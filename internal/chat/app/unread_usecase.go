package app

import (
	"context"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// UnreadUseCase 維護per-user未讀數,cache只求快,真值永遠可從message store重算
type UnreadUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	cache    repository.UnreadCache
}

// NewUnreadUseCase init unread use case
func NewUnreadUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	cache repository.UnreadCache,
) *UnreadUseCase {
	return &UnreadUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		cache:    cache,
	}
}

// MarkRead 更新last_read_at並歸零cache
func (uc *UnreadUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return domain.ErrNotParticipant
	}

	now := time.Now().UnixMilli()
	if err := uc.convRepo.SetLastRead(ctx, conversationID, userID, now); err != nil {
		return err
	}
	// cache歸零失敗不算mark-read失敗,下次讀取會重算
	if err := uc.cache.Reset(ctx, userID, conversationID); err != nil {
		logger.Log.Error("reset unread cache failed",
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
	return nil
}

// Bump 新訊息進來時遞增每個還沒讀到這則的成員(sender除外)
func (uc *UnreadUseCase) Bump(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	var firstErr error
	for _, p := range conv.Participants {
		if p.UserID == msg.SenderID {
			continue
		}
		if p.LastReadAt >= msg.CreatedAt {
			continue
		}
		if err := uc.cache.Incr(ctx, p.UserID, conv.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Recompute 從message store重算並覆蓋cache,漏接事件後的自癒路徑
func (uc *UnreadUseCase) Recompute(ctx context.Context, conversationID, userID string) (int, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	p := conv.Participant(userID)
	if p == nil {
		return 0, domain.ErrNotParticipant
	}

	n, err := uc.msgRepo.CountUnread(ctx, conversationID, userID, p.LastReadAt)
	if err != nil {
		return 0, err
	}
	if err := uc.cache.Set(ctx, userID, conversationID, n); err != nil {
		logger.Log.Error("set unread cache failed",
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
	return n, nil
}

// Counts 列表頁用,cache miss的conversation走重算
func (uc *UnreadUseCase) Counts(ctx context.Context, userID string, conversationIDs []string) ([]domain.UnreadInfo, error) {
	infos := make([]domain.UnreadInfo, 0, len(conversationIDs))
	for _, conversationID := range conversationIDs {
		n, cached, err := uc.cache.Get(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		if !cached {
			n, err = uc.Recompute(ctx, conversationID, userID)
			if err != nil {
				return nil, err
			}
		}
		infos = append(infos, domain.UnreadInfo{ConversationID: conversationID, UnreadCount: n})
	}
	return infos, nil
}
