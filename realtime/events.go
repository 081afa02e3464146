package realtime

import (
	"context"
	"encoding/json"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/models"
	"chatsev-backend/utils"
)

// Change feed event types. Message and reaction events are scoped to a
// conversation channel, block changes to the affected users' channels.
const (
	EventMessageInsert      = "message.insert"
	EventMessageUpdate      = "message.update"
	EventMessageDelete      = "message.delete"
	EventReactionInsert     = "reaction.insert"
	EventReactionDelete     = "reaction.delete"
	EventConversationUpdate = "conversation.update"
	EventBlockChange        = "block.change"
)

// Event is one change-feed entry as published to redis and delivered
// to subscribed clients.
type Event struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversationId,omitempty"`
	MessageID      string               `json:"messageId,omitempty"`
	ActorID        string               `json:"actorId,omitempty"`
	Emoji          string               `json:"emoji,omitempty"`
	Message        *models.MessageView  `json:"message,omitempty"`
	Conversation   *models.Conversation `json:"conversation,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

func conversationChannel(conversationID string) string {
	return "conv:" + conversationID
}

func userChannel(userID string) string {
	return "user:" + userID
}

// PublishToConversation pushes an event onto a conversation's change
// feed. Best-effort: a publish failure is logged and never fails the
// operation that triggered it.
func PublishToConversation(conversationID string, event Event) {
	event.ConversationID = conversationID
	publish(conversationChannel(conversationID), event)
}

// PublishToUser pushes an event onto a user-scoped channel, used for
// block changes so conversations hide or reappear immediately.
func PublishToUser(userID string, event Event) {
	publish(userChannel(userID), event)
}

func publish(channel string, event Event) {
	if db.Redis == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		utils.LogError(err, "Error marshaling realtime event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.Redis.Publish(ctx, channel, payload).Err(); err != nil {
		utils.LogError(err, "Error publishing realtime event on "+channel)
	}
}
