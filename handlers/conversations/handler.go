package conversations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/gate"
	"chatsev-backend/models"
	"chatsev-backend/realtime"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// @Summary Resolve or create a conversation
// @Description Return the single conversation for the authenticated user and another user, creating it on first contact
// @Tags conversations
// @Accept json
// @Produce json
// @Param conversation body models.ConversationCreate true "Other participant"
// @Security BearerAuth
// @Success 200 {object} models.Conversation "Conversation"
// @Failure 400 {object} map[string]string "error: Invalid request data"
// @Failure 403 {object} map[string]string "error: Conversation blocked"
// @Failure 404 {object} map[string]string "error: User not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations [post]
func GetOrCreateConversation(c *gin.Context) {
	selfID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.ConversationCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	if input.OtherUserID == selfID.(string) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start a conversation with yourself"})
		return
	}

	var other models.User
	if err := db.DB.Where("id = ?", input.OtherUserID).First(&other).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error verifying user: " + err.Error()})
		}
		return
	}

	if !other.MessageEnable {
		c.JSON(http.StatusForbidden, gin.H{"error": "This user has disabled private messages"})
		return
	}

	blocked, err := gate.IsBlocked(selfID.(string), input.OtherUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking relationship: " + err.Error()})
		return
	}
	if blocked {
		c.JSON(utils.HTTPStatusFromError(utils.ErrBlocked), gin.H{"error": "Conversation blocked"})
		return
	}

	participantA, participantB := models.CanonicalPair(selfID.(string), input.OtherUserID)

	var conversation models.Conversation
	err = db.DB.Where("participant_a = ? AND participant_b = ?", participantA, participantB).
		First(&conversation).Error
	if err == nil {
		c.JSON(http.StatusOK, conversation)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resolving conversation: " + err.Error()})
		return
	}

	// Idempotent creation: the unique index on the canonical pair plus
	// ON CONFLICT DO NOTHING makes the concurrent get-or-create from
	// both participants converge on one row.
	conversation = models.Conversation{
		ParticipantA:   participantA,
		ParticipantB:   participantB,
		LastActivityAt: time.Now(),
	}
	result := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_a"}, {Name: "participant_b"}},
		DoNothing: true,
	}).Create(&conversation)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating conversation: " + result.Error.Error()})
		return
	}

	if result.RowsAffected == 0 {
		// Lost the creation race, the other side's row is ours too
		if err := db.DB.Where("participant_a = ? AND participant_b = ?", participantA, participantB).
			First(&conversation).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resolving conversation: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, conversation)
		return
	}

	utils.LogSuccessWithUser(selfID, "Conversation created")
	c.JSON(http.StatusCreated, conversation)
}

// @Summary List conversations
// @Description List the authenticated user's conversations ordered by last activity, with unread counts and the other participant's profile
// @Tags conversations
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20)"
// @Security BearerAuth
// @Success 200 {array} models.ConversationSummary "Conversation list"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations [get]
func ListConversations(c *gin.Context) {
	selfID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	privileged, err := gate.IsPrivilegedInspector(selfID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking privileges: " + err.Error()})
		return
	}

	var conversations []models.Conversation
	result := db.DB.Where("participant_a = ? OR participant_b = ?", selfID, selfID).
		Order("last_activity_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&conversations)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving conversations: " + result.Error.Error()})
		return
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))

	for _, conversation := range conversations {
		otherID := conversation.OtherParticipant(selfID.(string))

		// A block in either direction hides the conversation for both
		// sides, privileged or not
		blocked, err := gate.IsBlocked(selfID.(string), otherID)
		if err != nil {
			utils.LogErrorWithUser(selfID, err, "Error checking block for conversation "+conversation.ID)
			continue
		}
		if blocked {
			continue
		}

		var ownMarker models.ConversationDeletion
		ownMarkerErr := db.DB.Where("conversation_id = ? AND user_id = ?", conversation.ID, selfID).
			First(&ownMarker).Error
		if ownMarkerErr == nil && !privileged {
			continue
		}

		summary := models.ConversationSummary{
			Conversation: conversation,
			Nickname:     conversation.NicknameFor(selfID.(string)),
		}

		if privileged {
			// Inspectors see the other side's deletion as an
			// annotation instead of a suppression
			var otherMarker models.ConversationDeletion
			if err := db.DB.Where("conversation_id = ? AND user_id = ?", conversation.ID, otherID).
				First(&otherMarker).Error; err == nil {
				summary.OtherDeleted = true
				summary.OtherDeletedAt = &otherMarker.DeletedAt
			}
		}

		var other models.User
		if err := db.DB.Select("id", "user_name", "profile_picture", "gender").
			Where("id = ?", otherID).First(&other).Error; err == nil {
			summary.Other = other.Snapshot()
		}

		var unread int64
		db.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id = ? AND read_at IS NULL", conversation.ID, otherID).
			Count(&unread)
		summary.UnreadCount = unread

		var last models.Message
		if err := db.DB.Where("conversation_id = ?", conversation.ID).
			Order("created_at DESC").First(&last).Error; err == nil {
			if last.IsDeleted && privileged {
				last.RestoreOriginal()
				last.IsDeleted = false
			}
			summary.LastPreview = last.Preview()
		}

		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, summaries)
}

// @Summary Update conversation settings
// @Description Mutate conversation attributes: theme, quick reaction emoji, nickname, vanish mode
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param settings body models.ConversationSettingsUpdate true "Settings"
// @Security BearerAuth
// @Success 200 {object} models.Conversation "Updated conversation"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations/{id}/settings [put]
func UpdateSettings(c *gin.Context) {
	selfID, exists := c.Get("user_id")
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

	if !conversation.HasParticipant(selfID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	var input models.ConversationSettingsUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	if input.Theme != nil {
		conversation.Theme = *input.Theme
	}
	if input.QuickEmoji != nil {
		conversation.QuickEmoji = *input.QuickEmoji
	}
	if input.Nickname != nil {
		// The nickname names the other side, stored on the caller's slot
		if conversation.ParticipantA == selfID.(string) {
			conversation.NicknameForA = *input.Nickname
		} else {
			conversation.NicknameForB = *input.Nickname
		}
	}
	if input.VanishMode != nil {
		conversation.VanishMode = *input.VanishMode
	}
	if input.VanishTimeoutSecond != nil {
		conversation.VanishTimeoutSecond = *input.VanishTimeoutSecond
	}

	if err := db.DB.Save(&conversation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating settings: " + err.Error()})
		return
	}

	realtime.PublishToConversation(conversation.ID, realtime.Event{
		Type:         realtime.EventConversationUpdate,
		ActorID:      selfID.(string),
		Conversation: &conversation,
	})

	c.JSON(http.StatusOK, conversation)
}

// @Summary Delete a conversation
// @Description For participants, soft-delete every message and hide the conversation behind a personal marker. For a privileged inspector, physically remove the conversation and its messages
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Conversation deleted"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations/{id} [delete]
func DeleteConversation(c *gin.Context) {
	selfID, exists := c.Get("user_id")
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

	privileged, err := gate.IsPrivilegedInspector(selfID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking privileges: " + err.Error()})
		return
	}

	if privileged {
		// Physical, irreversible removal of the conversation and
		// everything under it
		err := db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(
				`DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = ?)`,
				conversationID).Error; err != nil {
				return err
			}
			if err := tx.Where("conversation_id = ?", conversationID).
				Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("conversation_id = ?", conversationID).
				Delete(&models.ConversationDeletion{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(&conversation).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error purging conversation: " + err.Error()})
			return
		}

		utils.LogSuccessWithUser(selfID, "Conversation purged by inspector")
		c.JSON(http.StatusOK, gin.H{"message": "Conversation permanently deleted"})
		return
	}

	if !conversation.HasParticipant(selfID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	// Best-effort bulk soft delete: each message is processed
	// independently, one failure does not abort the rest
	var messages []models.Message
	if err := db.DB.Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading messages: " + err.Error()})
		return
	}

	now := time.Now()
	for i := range messages {
		messages[i].ApplyDeleteTransform(selfID.(string), false, now)
		if err := db.DB.Model(&models.Message{}).Where("id = ?", messages[i].ID).
			Updates(messages[i].DeleteTransformUpdates()).Error; err != nil {
			utils.LogErrorWithUser(selfID, err, "Error soft-deleting message "+messages[i].ID)
		}
	}

	marker := models.ConversationDeletion{
		ConversationID: conversationID,
		UserID:         selfID.(string),
		DeletedAt:      now,
	}
	err = db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"deleted_at"}),
	}).Create(&marker).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error recording deletion: " + err.Error()})
		return
	}

	utils.LogSuccessWithUser(selfID, "Conversation deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}
