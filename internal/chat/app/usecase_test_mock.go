package app

import (
	"context"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// EnsureIndexes moke ensure indexes
func (m *MockConversationRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Create moke create conversation
func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindDirectByPair moke find direct conversation by pair
func (m *MockConversationRepository) FindDirectByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByUser moke list conversations by user
func (m *MockConversationRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// Touch moke touch conversation
func (m *MockConversationRepository) Touch(ctx context.Context, conversationID string, at int64) error {
	args := m.Called(ctx, conversationID, at)
	return args.Error(0)
}

// SetParticipants moke set participants
func (m *MockConversationRepository) SetParticipants(ctx context.Context, conversationID string, participants []domain.Participant) error {
	args := m.Called(ctx, conversationID, participants)
	return args.Error(0)
}

// SetLastRead moke set last read
func (m *MockConversationRepository) SetLastRead(ctx context.Context, conversationID, userID string, at int64) error {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID moke find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByConversation moke list messages by conversation
func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, page, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetContent moke set message content
func (m *MockMessageRepository) SetContent(ctx context.Context, messageID, content string, editedAt int64) error {
	args := m.Called(ctx, messageID, content, editedAt)
	return args.Error(0)
}

// SoftDelete moke soft delete message
func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID string, deletedAt int64) error {
	args := m.Called(ctx, messageID, deletedAt)
	return args.Error(0)
}

// CountUnread moke count unread messages
func (m *MockMessageRepository) CountUnread(ctx context.Context, conversationID, userID string, lastReadAt int64) (int, error) {
	args := m.Called(ctx, conversationID, userID, lastReadAt)
	return args.Int(0), args.Error(1)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// AutoMigrate moke auto migrate
func (m *MockUserRepository) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

// FindByID moke find user by id
func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockChannelBus Mock ChannelBus
type MockChannelBus struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockChannelBus) Publish(ctx context.Context, channel string, event domain.EventType, payload interface{}) error {
	args := m.Called(ctx, channel, event, payload)
	return args.Error(0)
}

// Subscribe moke subscriber
func (m *MockChannelBus) Subscribe(ctx context.Context, channel string, events []domain.EventType, handler func(domain.Event)) (repository.Subscription, error) {
	args := m.Called(ctx, channel, events, handler)
	if args.Get(0) != nil {
		return args.Get(0).(repository.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// Close moke close bus
func (m *MockChannelBus) Close() {
	m.Called()
}

// MockUnreadCache Mock UnreadCache
type MockUnreadCache struct {
	mock.Mock
}

// Incr moke incr unread
func (m *MockUnreadCache) Incr(ctx context.Context, userID, conversationID string) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}

// Reset moke reset unread
func (m *MockUnreadCache) Reset(ctx context.Context, userID, conversationID string) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}

// Set moke set unread
func (m *MockUnreadCache) Set(ctx context.Context, userID, conversationID string, count int) error {
	args := m.Called(ctx, userID, conversationID, count)
	return args.Error(0)
}

// Get moke get unread
func (m *MockUnreadCache) Get(ctx context.Context, userID, conversationID string) (int, bool, error) {
	args := m.Called(ctx, userID, conversationID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

// GetAll moke get all unread
func (m *MockUnreadCache) GetAll(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]int), args.Error(1)
	}
	return nil, args.Error(1)
}
