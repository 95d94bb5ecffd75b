package domain

import (
	"sort"
	"strings"
)

// ConversationKind definition conversation kind
type ConversationKind string

const (
	// KindDirect definition conversation 1 on 1
	KindDirect ConversationKind = "direct" // 1對1
	// KindGroup definition conversation group
	KindGroup ConversationKind = "group" // 群組
	// KindCommunity definition conversation community
	KindCommunity ConversationKind = "community" // 社群
)

// Role definition participant role in group/community
type Role string

const (
	// RoleCreator conversation creator
	RoleCreator Role = "creator"
	// RoleAdmin conversation admin
	RoleAdmin Role = "admin"
	// RoleMember normal member
	RoleMember Role = "member"
)

// Participant definition membership of one user in a conversation
type Participant struct {
	UserID   string `bson:"user_id" json:"user_id"`
	Role     Role   `bson:"role" json:"role"`
	JoinedAt int64  `bson:"joined_at" json:"joined_at"`
	// LastReadAt 只由 mark-read 更新,未讀數以此為準
	LastReadAt int64 `bson:"last_read_at" json:"last_read_at"`
}

// Conversation definition one messaging thread
type Conversation struct {
	ID   string           `bson:"_id,omitempty" json:"id"`
	Kind ConversationKind `bson:"kind" json:"kind"`
	// Name/Avatar 只有 group/community 使用
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
	Avatar string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	// PairKey 1對1專用,唯一索引保證同一對user只有一個direct conversation
	PairKey      string        `bson:"pair_key,omitempty" json:"-"`
	Participants []Participant `bson:"participants" json:"participants"`
	CreatedAt    int64         `bson:"created_at" json:"created_at"`
	// UpdatedAt 最後活動時間,列表排序用,訊息寫入時更新
	UpdatedAt int64 `bson:"updated_at" json:"updated_at"`
}

// DirectPairKey build the order-independent key of a direct pair
func DirectPairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

// HasParticipant check user is a participant
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant(userID) != nil
}

// Participant find membership by user id
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}
