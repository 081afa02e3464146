package messages

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/gate"
	"chatsev-backend/models"
	"chatsev-backend/notifications"
	"chatsev-backend/realtime"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const pageSize = 30

// @Summary Send a message
// @Description Send a message into a conversation: text and/or exactly one media reference, with an optional reply
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param message body models.MessageCreate true "Message payload"
// @Security BearerAuth
// @Success 201 {object} models.MessageView "Created message"
// @Failure 400 {object} map[string]string "error: Invalid request data"
// @Failure 403 {object} map[string]string "error: Blocked or not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations/{id}/messages [post]
func SendMessage(c *gin.Context) {
	senderID, exists := c.Get("user_id")
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

	if !conversation.HasParticipant(senderID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	var input models.MessageCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" && input.MediaCount() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A message needs text or a media reference"})
		return
	}
	if input.MediaCount() > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A message carries at most one media reference"})
		return
	}

	if input.ReplyToID != "" {
		var replied models.Message
		if err := db.DB.Select("id", "conversation_id").
			Where("id = ?", input.ReplyToID).First(&replied).Error; err != nil ||
			replied.ConversationID != conversationID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reply target not found in this conversation"})
			return
		}
	}

	// Re-checked right before the insert. The check and the insert are
	// not one transaction: a block created in between can let a single
	// message through, an accepted race window.
	recipientID := conversation.OtherParticipant(senderID.(string))
	blocked, err := gate.IsBlocked(senderID.(string), recipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking relationship: " + err.Error()})
		return
	}
	if blocked {
		c.JSON(utils.HTTPStatusFromError(utils.ErrBlocked), gin.H{"error": "Conversation blocked"})
		return
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID.(string),
		Content:        input.Content,
		Images:         input.Images,
		VideoURL:       input.VideoURL,
		VoiceURL:       input.VoiceURL,
		VoiceDuration:  input.VoiceDuration,
		FileURL:        input.FileURL,
		GifID:          input.GifID,
		ReplyToID:      input.ReplyToID,
		Status:         models.StatusSent,
	}

	if result := db.DB.Create(&message); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating message: " + result.Error.Error()})
		return
	}

	// Side-effects below are best-effort: the message is already
	// durable, a failure here is logged and never fails the send.

	if err := db.DB.Model(&models.Conversation{}).Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_activity_at": message.CreatedAt,
			"last_preview":     message.Preview(),
		}).Error; err != nil {
		utils.LogErrorWithUser(senderID, err, "Error updating conversation activity")
	}

	// A new inbound message resurrects the conversation for the
	// recipient: their stale deletion marker is cleared
	if err := db.DB.Where("conversation_id = ? AND user_id = ?", conversationID, recipientID).
		Delete(&models.ConversationDeletion{}).Error; err != nil {
		utils.LogErrorWithUser(senderID, err, "Error clearing deletion marker")
	}

	view, _ := models.BuildView(message, false)
	attachSender(&view)
	resolveGif(&view)

	realtime.PublishToConversation(conversationID, realtime.Event{
		Type:    realtime.EventMessageInsert,
		ActorID: senderID.(string),
		Message: &view,
	})

	notifications.Notify(recipientID, notifications.Notification{
		Type:    "message",
		FromID:  senderID.(string),
		Summary: message.Preview(),
	})

	utils.LogSuccessWithUser(senderID, "Message sent")
	c.JSON(http.StatusCreated, view)
}

// @Summary Fetch a message page
// @Description Fetch up to 30 messages of a conversation, oldest first, older than the optional before timestamp. Soft-deleted messages are reconstructed for privileged inspectors and hidden or replaced for everyone else
// @Tags messages
// @Produce json
// @Param id path string true "Conversation ID"
// @Param before query string false "RFC3339 timestamp, only messages older than this are returned"
// @Security BearerAuth
// @Success 200 {array} models.MessageView "Message page"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations/{id}/messages [get]
func FetchMessages(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
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

	// Privilege is resolved on every read, never cached
	privileged, err := gate.IsPrivilegedInspector(viewerID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking privileges: " + err.Error()})
		return
	}

	if !conversation.HasParticipant(viewerID.(string)) && !privileged {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	query := db.DB.Where("conversation_id = ?", conversationID)
	if before := c.Query("before"); before != "" {
		cursor, err := time.Parse(time.RFC3339, before)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before timestamp, expected RFC3339"})
			return
		}
		query = query.Where("created_at < ?", cursor)
	}

	var page []models.Message
	if err := query.Order("created_at DESC").Limit(pageSize).Find(&page).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving messages: " + err.Error()})
		return
	}

	// Fetched newest-first for the cursor, delivered oldest-first
	views := make([]models.MessageView, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		view, visible := models.BuildView(page[i], privileged)
		if !visible {
			continue
		}

		attachSender(&view)
		resolveGif(&view)
		attachReactions(&view)

		if page[i].ReplyToID != "" {
			view.ReplyTo = resolveReply(page[i].ReplyToID, privileged)
		}

		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

// resolveReply loads one level of reply linkage, no deeper recursion.
func resolveReply(replyToID string, privileged bool) *models.MessageView {
	var replied models.Message
	if err := db.DB.Where("id = ?", replyToID).First(&replied).Error; err != nil {
		return nil
	}

	view, visible := models.BuildView(replied, privileged)
	if !visible {
		return nil
	}

	attachSender(&view)
	resolveGif(&view)
	return &view
}

func attachSender(view *models.MessageView) {
	var sender models.User
	if err := db.DB.Select("id", "user_name", "profile_picture", "gender").
		Where("id = ?", view.SenderID).First(&sender).Error; err == nil {
		view.Sender = sender.Snapshot()
	}
}

func resolveGif(view *models.MessageView) {
	if view.GifID == "" {
		return
	}
	var gif models.Gif
	if err := db.DB.Where("id = ?", view.GifID).First(&gif).Error; err == nil {
		view.Gif = &gif
	}
}

func attachReactions(view *models.MessageView) {
	var reactions []models.MessageReaction
	if err := db.DB.Where("message_id = ?", view.ID).Find(&reactions).Error; err != nil {
		return
	}
	for _, reaction := range reactions {
		view.Reactions = append(view.Reactions, models.ReactionView{
			UserID: reaction.UserID,
			Emoji:  reaction.Emoji,
		})
	}
}

// @Summary Edit a message
// @Description Edit the text of an own, pure-text message within 15 minutes of sending
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param message body models.MessageEdit true "New text"
// @Security BearerAuth
// @Success 200 {object} models.MessageView "Updated message"
// @Failure 403 {object} map[string]string "error: Not the sender or edit window expired"
// @Failure 404 {object} map[string]string "error: Message not found"
// @Failure 422 {object} map[string]string "error: Only text messages can be edited"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /messages/{id} [put]
func EditMessage(c *gin.Context) {
	actorID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID := c.Param("id")

	var message models.Message
	if err := db.DB.Where("id = ?", messageID).First(&message).Error; err != nil {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotFound), gin.H{"error": "Message not found"})
		return
	}

	if message.SenderID != actorID.(string) {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotOwner), gin.H{"error": "Only the sender can edit a message"})
		return
	}

	if message.HasMedia() {
		c.JSON(utils.HTTPStatusFromError(utils.ErrUnsupported), gin.H{"error": "Only text messages can be edited"})
		return
	}

	if message.IsDeleted {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotFound), gin.H{"error": "Message not found"})
		return
	}

	var input models.MessageEdit
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	// The window is re-validated inside the UPDATE against the current
	// clock, a stale read cannot extend it
	now := time.Now()
	result := db.DB.Model(&models.Message{}).
		Where("id = ? AND sender_id = ? AND created_at > ?", messageID, actorID, now.Add(-models.EditWindow)).
		Updates(map[string]interface{}{
			"content":   input.Content,
			"is_edited": true,
			"edited_at": now,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error editing message: " + result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(utils.HTTPStatusFromError(utils.ErrExpired), gin.H{"error": "Edit window has expired"})
		return
	}

	message.Content = input.Content
	message.IsEdited = true
	message.EditedAt = &now

	view, _ := models.BuildView(message, false)
	attachSender(&view)
	attachReactions(&view)

	realtime.PublishToConversation(message.ConversationID, realtime.Event{
		Type:    realtime.EventMessageUpdate,
		ActorID: actorID.(string),
		Message: &view,
	})

	c.JSON(http.StatusOK, view)
}

// @Summary Delete a message
// @Description Delete for me (any participant, any time) or for everyone (sender only, within 10 minutes). Both paths preserve a shadow copy of the content
// @Tags messages
// @Produce json
// @Param id path string true "Message ID"
// @Param forEveryone query bool false "Delete for everyone"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Message deleted"
// @Failure 403 {object} map[string]string "error: Not the sender or delete window expired"
// @Failure 404 {object} map[string]string "error: Message not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /messages/{id} [delete]
func DeleteMessage(c *gin.Context) {
	actorID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID := c.Param("id")
	forEveryone := c.Query("forEveryone") == "true"

	var message models.Message
	if err := db.DB.Where("id = ?", messageID).First(&message).Error; err != nil {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotFound), gin.H{"error": "Message not found"})
		return
	}

	var conversation models.Conversation
	if err := db.DB.Where("id = ?", message.ConversationID).First(&conversation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading conversation: " + err.Error()})
		return
	}

	if !conversation.HasParticipant(actorID.(string)) {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotOwner), gin.H{"error": "Not a participant of this conversation"})
		return
	}

	// The clock is read right before the write, not at load time
	now := time.Now()

	if forEveryone {
		if message.SenderID != actorID.(string) {
			c.JSON(utils.HTTPStatusFromError(utils.ErrNotOwner), gin.H{"error": "Only the sender can delete for everyone"})
			return
		}
		if !message.CanDeleteForEveryoneAt(now) {
			c.JSON(utils.HTTPStatusFromError(utils.ErrExpired), gin.H{"error": "Delete for everyone window has expired"})
			return
		}
	}

	message.ApplyDeleteTransform(actorID.(string), forEveryone, now)

	// Scoped to the transform columns so a read receipt landing between
	// the load and this write keeps its status
	if err := db.DB.Model(&models.Message{}).Where("id = ?", message.ID).
		Updates(message.DeleteTransformUpdates()).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting message: " + err.Error()})
		return
	}

	// Ordinary viewers get the post-transform shape: a placeholder for
	// delete-for-everyone, an empty deleted stub otherwise
	eventView := models.MessageView{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Status:         message.Status,
		Deleted:        true,
		Reactions:      []models.ReactionView{},
		CreatedAt:      message.CreatedAt,
	}
	if message.DeletedForEveryone {
		eventView.Content = models.RemovedPlaceholder
	}

	realtime.PublishToConversation(message.ConversationID, realtime.Event{
		Type:    realtime.EventMessageUpdate,
		ActorID: actorID.(string),
		Message: &eventView,
	})

	utils.LogSuccessWithUser(actorID, "Message deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

// @Summary Toggle a reaction
// @Description React to a message. The same emoji toggles the reaction off, a different emoji replaces it, one reaction per user per message
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param reaction body models.ReactionCreate true "Emoji"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Reaction added/updated/removed"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Message not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /messages/{id}/reactions [post]
func ToggleReaction(c *gin.Context) {
	actorID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID := c.Param("id")

	var message models.Message
	if err := db.DB.Where("id = ?", messageID).First(&message).Error; err != nil {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotFound), gin.H{"error": "Message not found"})
		return
	}

	var conversation models.Conversation
	if err := db.DB.Where("id = ?", message.ConversationID).First(&conversation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading conversation: " + err.Error()})
		return
	}

	if !conversation.HasParticipant(actorID.(string)) {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotOwner), gin.H{"error": "Not a participant of this conversation"})
		return
	}

	var input models.ReactionCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	var reaction models.MessageReaction
	result := db.DB.Where("message_id = ? AND user_id = ?", messageID, actorID).First(&reaction)

	if result.Error == nil {
		if reaction.Emoji == input.Emoji {
			// Same emoji again toggles the reaction off
			if err := db.DB.Delete(&reaction).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error removing reaction: " + err.Error()})
				return
			}

			realtime.PublishToConversation(message.ConversationID, realtime.Event{
				Type:      realtime.EventReactionDelete,
				MessageID: messageID,
				ActorID:   actorID.(string),
			})

			c.JSON(http.StatusOK, gin.H{"message": "Reaction removed"})
			return
		}

		reaction.Emoji = input.Emoji
		if err := db.DB.Save(&reaction).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating reaction: " + err.Error()})
			return
		}

		realtime.PublishToConversation(message.ConversationID, realtime.Event{
			Type:      realtime.EventReactionInsert,
			MessageID: messageID,
			ActorID:   actorID.(string),
			Emoji:     input.Emoji,
		})

		c.JSON(http.StatusOK, gin.H{"message": "Reaction updated"})
		return
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking reaction: " + result.Error.Error()})
		return
	}

	reaction = models.MessageReaction{
		MessageID: messageID,
		UserID:    actorID.(string),
		Emoji:     input.Emoji,
	}
	if err := db.DB.Create(&reaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error adding reaction: " + err.Error()})
		return
	}

	realtime.PublishToConversation(message.ConversationID, realtime.Event{
		Type:      realtime.EventReactionInsert,
		MessageID: messageID,
		ActorID:   actorID.(string),
		Emoji:     input.Emoji,
	})

	if message.SenderID != actorID.(string) {
		notifications.Notify(message.SenderID, notifications.Notification{
			Type:    "reaction",
			FromID:  actorID.(string),
			Summary: input.Emoji,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reaction added"})
}

// @Summary Mark a conversation read
// @Description Mark every unread message from the other participant as read. Idempotent, a second call is a no-op success
// @Tags messages
// @Produce json
// @Param id path string true "Conversation ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message: Messages marked read, count"
// @Failure 403 {object} map[string]string "error: Not a participant"
// @Failure 404 {object} map[string]string "error: Conversation not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /conversations/{id}/read [post]
func MarkAllRead(c *gin.Context) {
	readerID, exists := c.Get("user_id")
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

	if !conversation.HasParticipant(readerID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	// Guarded in SQL so status never moves backward, which also makes
	// repeated calls no-ops
	now := time.Now()
	result := db.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND status <> ?", conversationID, readerID, models.StatusRead).
		Updates(map[string]interface{}{
			"status":  models.StatusRead,
			"read_at": now,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error marking messages read: " + result.Error.Error()})
		return
	}

	if result.RowsAffected > 0 {
		realtime.PublishToConversation(conversationID, realtime.Event{
			Type:         realtime.EventConversationUpdate,
			ActorID:      readerID.(string),
			Conversation: &conversation,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages marked read", "count": result.RowsAffected})
}

// @Summary Mark a message delivered
// @Description Recipient acknowledgement that a message reached their client. Only moves SENT forward, never regresses READ
// @Tags messages
// @Produce json
// @Param id path string true "Message ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Message delivered"
// @Failure 403 {object} map[string]string "error: Not a participant or sender cannot acknowledge delivery"
// @Failure 404 {object} map[string]string "error: Message not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /messages/{id}/delivered [post]
func MarkDelivered(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	messageID := c.Param("id")

	var message models.Message
	if err := db.DB.Where("id = ?", messageID).First(&message).Error; err != nil {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotFound), gin.H{"error": "Message not found"})
		return
	}

	var conversation models.Conversation
	if err := db.DB.Where("id = ?", message.ConversationID).First(&conversation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading conversation: " + err.Error()})
		return
	}

	if !conversation.HasParticipant(userID.(string)) {
		c.JSON(utils.HTTPStatusFromError(utils.ErrNotOwner), gin.H{"error": "Not a participant of this conversation"})
		return
	}

	if message.SenderID == userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Sender cannot acknowledge delivery"})
		return
	}

	// The status guard keeps the transition monotonic: DELIVERED only
	// ever replaces SENT
	result := db.DB.Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.StatusSent).
		Update("status", models.StatusDelivered)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error marking delivery: " + result.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message delivered"})
}
