package domain

import "encoding/json"

// EventType definition push event name on the channel bus
type EventType string

const (
	// EventMessageNew new message on conversation channel
	EventMessageNew EventType = "message:new"
	// EventMessageEdited message edited on conversation channel
	EventMessageEdited EventType = "message:edited"
	// EventMessageDeleted message deleted on conversation channel
	EventMessageDeleted EventType = "message:deleted"

	// EventNewMessageNotify cross-conversation notify on user channel
	EventNewMessageNotify EventType = "new-message-notification"
	// EventConversationNew new conversation notify on user channel
	EventConversationNew EventType = "conversation:new"
	// EventMemberJoined member joined group/community
	EventMemberJoined EventType = "member:joined"
	// EventMemberLeft member left group/community
	EventMemberLeft EventType = "member:left"
)

// Event definition the wire envelope published on a channel
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent build an event envelope from a payload value
func NewEvent(t EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Payload: data}, nil
}

// Decode unmarshal the event payload into v
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewMessageNotification payload of new-message-notification on user channel
type NewMessageNotification struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
}

// MemberChange payload of member:joined / member:left
type MemberChange struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// ConversationChannel channel name of one conversation
func ConversationChannel(conversationID string) string {
	return "conversation:" + conversationID
}

// UserChannel channel name of one user for cross-conversation notify
func UserChannel(userID string) string {
	return "user:" + userID
}
