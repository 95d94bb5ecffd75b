package app

import (
	"context"
	"errors"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationUseCase 負責conversation的建立/查詢與canonical-pair不變量
type ConversationUseCase struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	bus      repository.ChannelBus
}

// NewConversationUseCase init conversation use case
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	bus repository.ChannelBus,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo: convRepo,
		userRepo: userRepo,
		bus:      bus,
	}
}

// ResolveDirect find-or-create同一對user的唯一direct conversation,idempotent
func (uc *ConversationUseCase) ResolveDirect(ctx context.Context, currentUserID, otherUserID string) (*domain.Conversation, error) {
	if otherUserID == currentUserID {
		return nil, domain.ErrSameUser
	}
	// 對方必須是真實user
	if _, err := uc.userRepo.FindByID(ctx, otherUserID); err != nil {
		return nil, err
	}

	conv, err := uc.convRepo.FindDirectByPair(ctx, currentUserID, otherUserID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	now := time.Now().UnixMilli()
	conv = &domain.Conversation{
		ID:      uuid.New().String(),
		Kind:    domain.KindDirect,
		PairKey: domain.DirectPairKey(currentUserID, otherUserID),
		Participants: []domain.Participant{
			{UserID: currentUserID, Role: domain.RoleMember, JoinedAt: now},
			{UserID: otherUserID, Role: domain.RoleMember, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.convRepo.Create(ctx, conv); err != nil {
		if errors.Is(err, domain.ErrDuplicatePair) {
			// 兩邊同時resolve,唯一索引擋下後面那個,改抓先寫入者
			return uc.convRepo.FindDirectByPair(ctx, currentUserID, otherUserID)
		}
		return nil, err
	}

	uc.notifyParticipants(ctx, conv, domain.EventConversationNew, conv)
	return conv, nil
}

// CreateGroup create group/community conversation, creator帶creator role
func (uc *ConversationUseCase) CreateGroup(ctx context.Context, creatorID string, kind domain.ConversationKind, name string, memberIDs []string) (*domain.Conversation, error) {
	if kind != domain.KindGroup && kind != domain.KindCommunity {
		return nil, domain.ErrNotGroup
	}

	now := time.Now().UnixMilli()
	participants := []domain.Participant{
		{UserID: creatorID, Role: domain.RoleCreator, JoinedAt: now},
	}
	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		if findParticipant(participants, id) == nil {
			participants = append(participants, domain.Participant{
				UserID: id, Role: domain.RoleMember, JoinedAt: now,
			})
		}
	}

	conv := &domain.Conversation{
		ID:           uuid.New().String(),
		Kind:         kind,
		Name:         name,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}

	uc.notifyParticipants(ctx, conv, domain.EventConversationNew, conv)
	return conv, nil
}

// ListConversations 依最後活動新到舊分頁
func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, error) {
	page, limit = normalizePage(page, limit)
	return uc.convRepo.ListByUser(ctx, userID, page, limit)
}

// Participants list memberships, caller必須是成員
func (uc *ConversationUseCase) Participants(ctx context.Context, conversationID, userID string) ([]domain.Participant, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return conv.Participants, nil
}

// Join user加入group/community
func (uc *ConversationUseCase) Join(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Kind == domain.KindDirect {
		return domain.ErrNotGroup
	}
	if conv.HasParticipant(userID) {
		// 已是成員,idempotent
		return nil
	}

	conv.Participants = append(conv.Participants, domain.Participant{
		UserID:   userID,
		Role:     domain.RoleMember,
		JoinedAt: time.Now().UnixMilli(),
	})
	if err := uc.convRepo.SetParticipants(ctx, conv.ID, conv.Participants); err != nil {
		return err
	}

	change := domain.MemberChange{ConversationID: conv.ID, UserID: userID}
	uc.notifyParticipants(ctx, conv, domain.EventMemberJoined, change)
	return nil
}

// Leave user離開group/community,direct不可離開
func (uc *ConversationUseCase) Leave(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Kind == domain.KindDirect {
		return domain.ErrNotGroup
	}
	if !conv.HasParticipant(userID) {
		return domain.ErrNotParticipant
	}

	remaining := make([]domain.Participant, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p.UserID != userID {
			remaining = append(remaining, p)
		}
	}
	if err := uc.convRepo.SetParticipants(ctx, conv.ID, remaining); err != nil {
		return err
	}

	change := domain.MemberChange{ConversationID: conv.ID, UserID: userID}
	// 離開者自己也收到,方便client收尾
	uc.notifyParticipants(ctx, conv, domain.EventMemberLeft, change)
	return nil
}

// notifyParticipants 推到每個成員的user channel,發布失敗只記log不回滾
func (uc *ConversationUseCase) notifyParticipants(ctx context.Context, conv *domain.Conversation, event domain.EventType, payload interface{}) {
	for _, p := range conv.Participants {
		if err := uc.bus.Publish(ctx, domain.UserChannel(p.UserID), event, payload); err != nil {
			logger.Log.Error("publish user event failed",
				zap.String("user_id", p.UserID),
				zap.String("event", string(event)),
				zap.Error(err))
		}
	}
}

func findParticipant(participants []domain.Participant, userID string) *domain.Participant {
	for i := range participants {
		if participants[i].UserID == userID {
			return &participants[i]
		}
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
