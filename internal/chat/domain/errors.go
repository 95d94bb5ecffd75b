package domain

import "errors"

// 錯誤分類,handler層對應HTTP status
var (
	// ErrUserNotFound unknown user id
	ErrUserNotFound = errors.New("user not found")
	// ErrConversationNotFound unknown conversation id
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound unknown or deleted message id
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotParticipant sender is not a participant of the conversation
	ErrNotParticipant = errors.New("not a participant of the conversation")
	// ErrForbidden edit/delete by a user other than the sender
	ErrForbidden = errors.New("only the sender can modify the message")
	// ErrEmptyMessage no content and no attachment
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrSameUser direct conversation with yourself
	ErrSameUser = errors.New("cannot start a conversation with yourself")
	// ErrDuplicatePair direct conversation already exists for the pair,
	// resolver內部retry用,不回傳給caller
	ErrDuplicatePair = errors.New("direct conversation already exists")
	// ErrNotGroup join/leave on a direct conversation
	ErrNotGroup = errors.New("not a group conversation")
)
