package models

import (
	"time"
)

// Conversation is the durable container for messages between exactly
// two participants. The pair is stored canonically: ParticipantA is
// always the lexicographically smaller user id, and the (a, b) pair
// carries a unique index so concurrent get-or-create calls from both
// sides resolve to a single row.
type Conversation struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ParticipantA        string     `json:"participantA" gorm:"column:participant_a;uniqueIndex:idx_conversation_pair"`
	ParticipantB        string     `json:"participantB" gorm:"column:participant_b;uniqueIndex:idx_conversation_pair"`
	Theme               string     `json:"theme" gorm:"default:default"`
	QuickEmoji          string     `json:"quickEmoji" gorm:"default:❤️"`
	NicknameForA        string     `json:"nicknameForA" gorm:"column:nickname_for_a"`
	NicknameForB        string     `json:"nicknameForB" gorm:"column:nickname_for_b"`
	VanishMode          bool       `json:"vanishMode" gorm:"default:false"`
	VanishTimeoutSecond int        `json:"vanishTimeoutSecond" gorm:"default:0"`
	LastActivityAt      time.Time  `json:"lastActivityAt"`
	LastPreview         string     `json:"lastPreview"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// ConversationCreate model for resolving or creating a conversation
// @Description model for resolving or creating a conversation with another user
type ConversationCreate struct {
	OtherUserID string `json:"otherUserId" binding:"required"`
}

// ConversationSettingsUpdate model for mutating conversation attributes
// @Description model for mutating conversation attributes, nil fields are left untouched
type ConversationSettingsUpdate struct {
	Theme               *string `json:"theme"`
	QuickEmoji          *string `json:"quickEmoji"`
	Nickname            *string `json:"nickname"`
	VanishMode          *bool   `json:"vanishMode"`
	VanishTimeoutSecond *int    `json:"vanishTimeoutSecond"`
}

// ConversationSummary is one entry of a user's conversation list
type ConversationSummary struct {
	Conversation
	Other          ProfileSnapshot `json:"other"`
	Nickname       string          `json:"nickname"`
	UnreadCount    int64           `json:"unreadCount"`
	OtherDeleted   bool            `json:"otherDeleted,omitempty"`
	OtherDeletedAt *time.Time      `json:"otherDeletedAt,omitempty"`
}

// CanonicalPair orders two participant ids into storage order.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID is one of the two sides.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the id of the counterpart of selfID.
func (c *Conversation) OtherParticipant(selfID string) string {
	if c.ParticipantA == selfID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// NicknameFor returns the display nickname the given participant set
// for the other side, empty if none.
func (c *Conversation) NicknameFor(userID string) string {
	if c.ParticipantA == userID {
		return c.NicknameForA
	}
	return c.NicknameForB
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationDeletion is the per-(conversation, user) marker recording
// that a participant hid the conversation from their list. A new
// inbound message clears the recipient's marker so the conversation
// reappears.
type ConversationDeletion struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ConversationID string    `json:"conversationId" gorm:"column:conversation_id;uniqueIndex:idx_conversation_deletion"`
	UserID         string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_conversation_deletion"`
	DeletedAt      time.Time `json:"deletedAt"`
}

func (ConversationDeletion) TableName() string {
	return "conversation_deletions"
}
