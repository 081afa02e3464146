package models

import (
	"time"
)

// UserBlock is a directed block edge: blocker has blocked blocked.
// Blocking in either direction shuts down messaging for the pair.
type UserBlock struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BlockerID string    `json:"blockerId" gorm:"column:blocker_id;uniqueIndex:idx_blocker_blocked"`
	BlockedID string    `json:"blockedId" gorm:"column:blocked_id;uniqueIndex:idx_blocker_blocked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserBlock) TableName() string {
	return "user_blocks"
}
