package models

import (
	"time"
)

// MessageReaction holds at most one emoji per (message, reactor).
// Re-reacting with the same emoji removes the row, a different emoji
// replaces it.
type MessageReaction struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MessageID string    `json:"messageId" gorm:"column:message_id;uniqueIndex:idx_message_reactor"`
	UserID    string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_message_reactor"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}
