package domain

// MessageType definition message content type
type MessageType string

const (
	// MessageText plain text message
	MessageText MessageType = "text"
	// MessageImage image attachment message
	MessageImage MessageType = "image"
	// MessageFile generic file attachment message
	MessageFile MessageType = "file"
)

// Attachment definition uploaded file reference (url + filename only)
type Attachment struct {
	URL      string `bson:"url" json:"url"`
	Filename string `bson:"filename" json:"filename"`
}

// Message definition one chat message
type Message struct {
	ID             string `bson:"_id,omitempty" json:"id"`
	ConversationID string `bson:"conversation_id" json:"conversation_id"`
	SenderID       string `bson:"sender_id" json:"sender_id"`
	// SenderName/SenderAvatar 發送時從user store帶出,推播payload直接可用
	SenderName   string      `bson:"sender_name" json:"sender_name"`
	SenderAvatar string      `bson:"sender_avatar,omitempty" json:"sender_avatar,omitempty"`
	Content      string      `bson:"content" json:"content"`
	Type         MessageType `bson:"type" json:"type"`
	Attachment   *Attachment `bson:"attachment,omitempty" json:"attachment,omitempty"`
	// CreatedAt unix毫秒,由server寫入時決定,排序以(created_at, id)為準
	CreatedAt int64  `bson:"created_at" json:"created_at"`
	EditedAt  *int64 `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	// DeletedAt soft delete,保留訊息列位置
	DeletedAt *int64 `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Deleted check message is soft deleted
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// UnreadInfo definition unread count by conversation
type UnreadInfo struct {
	ConversationID string `json:"conversation_id"`
	UnreadCount    int    `json:"unread_count"`
}
