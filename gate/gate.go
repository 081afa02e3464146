// Package gate answers the two relationship questions the messaging
// core consumes: is a pair mutually usable, and is an identity a
// privileged inspector. The privilege is a role resolved from storage
// on every call, never a hardcoded identity and never cached.
package gate

import (
	"errors"

	"chatsev-backend/db"
	"chatsev-backend/models"

	"gorm.io/gorm"
)

// IsBlocked reports whether a block exists between a and b in either
// direction.
func IsBlocked(a, b string) (bool, error) {
	var count int64
	err := db.DB.Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsPrivilegedInspector reports whether the identity carries the
// inspector capability. Re-verified against storage on every read.
func IsPrivilegedInspector(userID string) (bool, error) {
	var user models.User
	err := db.DB.Select("role").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == models.InspectorRole, nil
}
