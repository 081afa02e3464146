package presence

import (
	"net/http"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/models"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
)

// Typing state lives in redis under one key per (conversation, user).
// The TTL is only a backstop: clients are expected to clear on send or
// after a short idle window, a stale true simply ages out.
const typingTTL = 10 * time.Second

func typingKey(conversationID, userID string) string {
	return "typing:" + conversationID + ":" + userID
}

// TypingUpdate model for setting the typing indicator
// @Description model for setting the typing indicator
type TypingUpdate struct {
	IsTyping bool `json:"isTyping"`
}

// @Summary Set typing state
// @Description Upsert the authenticated user's typing indicator for a conversation
// @Tags presence
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param typing body TypingUpdate true "Typing state"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Typing state updated"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Router /conversations/{id}/typing [put]
func SetTyping(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conversationID := c.Param("id")

	var conversation models.Conversation
	if err := db.DB.Where("id = ?", conversationID).First(&conversation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	if !conversation.HasParticipant(userID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	var input TypingUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	value := "0"
	if input.IsTyping {
		value = "1"
	}

	if err := db.Redis.Set(c.Request.Context(), typingKey(conversationID, userID.(string)), value, typingTTL).Err(); err != nil {
		utils.LogErrorWithUser(userID, err, "Error updating typing state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating typing state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Typing state updated"})
}

// @Summary Get typing state
// @Description Report whether the other participant is currently typing
// @Tags presence
// @Produce json
// @Param id path string true "Conversation ID"
// @Security BearerAuth
// @Success 200 {object} map[string]bool "isTyping"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Router /conversations/{id}/typing [get]
func GetTyping(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conversationID := c.Param("id")

	var conversation models.Conversation
	if err := db.DB.Where("id = ?", conversationID).First(&conversation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	if !conversation.HasParticipant(userID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	otherID := conversation.OtherParticipant(userID.(string))

	value, err := db.Redis.Get(c.Request.Context(), typingKey(conversationID, otherID)).Result()
	if err != nil {
		// Missing key or transient failure both read as not typing
		c.JSON(http.StatusOK, gin.H{"isTyping": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"isTyping": value == "1"})
}
