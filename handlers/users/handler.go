package users

import (
	"errors"
	"net/http"

	"chatsev-backend/db"
	"chatsev-backend/models"
	"chatsev-backend/realtime"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Get the authenticated user
// @Description Return the full profile of the authenticated user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "User"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: User not found"
// @Router /users/me [get]
func GetMe(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := db.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Get a profile snapshot
// @Description Return the public profile snapshot of a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} models.ProfileSnapshot "Profile"
// @Failure 404 {object} map[string]string "error: User not found"
// @Router /users/{id} [get]
func GetProfile(c *gin.Context) {
	var user models.User
	if err := db.DB.Select("id", "user_name", "profile_picture", "gender").
		Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user.Snapshot())
}

// @Summary Toggle a block
// @Description Block or unblock another user. Blocking in either direction shuts down messaging for the pair
// @Tags users
// @Produce json
// @Param id path string true "User ID to block or unblock"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: User blocked/unblocked"
// @Failure 400 {object} map[string]string "error: Cannot block yourself"
// @Failure 404 {object} map[string]string "error: User not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /users/{id}/block [post]
func ToggleBlock(c *gin.Context) {
	blockerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	blockedID := c.Param("id")
	if blockedID == blockerID.(string) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot block yourself"})
		return
	}

	var target models.User
	if err := db.DB.Where("id = ?", blockedID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var block models.UserBlock
	result := db.DB.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&block)

	if result.Error == nil {
		if err := db.DB.Delete(&block).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error removing block: " + err.Error()})
			return
		}

		publishBlockChange(blockerID.(string), blockedID)
		utils.LogSuccessWithUser(blockerID, "User unblocked")
		c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
		return
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking block: " + result.Error.Error()})
		return
	}

	block = models.UserBlock{
		BlockerID: blockerID.(string),
		BlockedID: blockedID,
	}
	if err := db.DB.Create(&block).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error adding block: " + err.Error()})
		return
	}

	publishBlockChange(blockerID.(string), blockedID)
	utils.LogSuccessWithUser(blockerID, "User blocked")
	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

// publishBlockChange tells both sides to re-evaluate their
// conversation lists immediately.
func publishBlockChange(blockerID, blockedID string) {
	event := realtime.Event{
		Type:    realtime.EventBlockChange,
		ActorID: blockerID,
	}
	realtime.PublishToUser(blockerID, event)
	realtime.PublishToUser(blockedID, event)
}
