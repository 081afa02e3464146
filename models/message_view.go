package models

import (
	"time"
)

// ReactionView is the per-reactor reaction as delivered to clients.
type ReactionView struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// MessageView is the delivery shape of a message: content after the
// per-viewer visibility transform, joined sender snapshot, one level
// of resolved reply, resolved GIF metadata and the reaction set. The
// realtime layer patches views of this shape in place.
type MessageView struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	Sender         ProfileSnapshot `json:"sender"`
	Content        string          `json:"content"`
	Images         []string        `json:"images,omitempty"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	VoiceURL       string          `json:"voiceUrl,omitempty"`
	VoiceDuration  int             `json:"voiceDuration,omitempty"`
	FileURL        string          `json:"fileUrl,omitempty"`
	GifID          string          `json:"-"`
	Gif            *Gif            `json:"gif,omitempty"`
	ReplyTo        *MessageView    `json:"replyTo,omitempty"`
	Status         MessageStatus   `json:"status"`
	ReadAt         *time.Time      `json:"readAt,omitempty"`
	IsEdited       bool            `json:"isEdited"`
	EditedAt       *time.Time      `json:"editedAt,omitempty"`
	Deleted        bool            `json:"deleted"`
	Reactions      []ReactionView  `json:"reactions"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// BuildView applies the per-viewer visibility transform and returns
// the delivery view. The second result is false when the message must
// be omitted for this viewer: a delete-for-me hides the row from
// everyone except a privileged inspector.
func BuildView(msg Message, privileged bool) (MessageView, bool) {
	if msg.IsDeleted {
		switch {
		case privileged:
			// Reconstruction: the shadow copy substitutes for the
			// nulled live fields, with a deleted annotation kept for
			// the UI.
			msg.RestoreOriginal()
		case msg.DeletedForEveryone:
			msg.Content = RemovedPlaceholder
			msg.Images = nil
			msg.VideoURL = ""
			msg.VoiceURL = ""
			msg.VoiceDuration = 0
			msg.FileURL = ""
			msg.GifID = ""
		default:
			return MessageView{}, false
		}
	}

	return MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Images:         msg.Images,
		VideoURL:       msg.VideoURL,
		VoiceURL:       msg.VoiceURL,
		VoiceDuration:  msg.VoiceDuration,
		FileURL:        msg.FileURL,
		GifID:          msg.GifID,
		Status:         msg.Status,
		ReadAt:         msg.ReadAt,
		IsEdited:       msg.IsEdited,
		EditedAt:       msg.EditedAt,
		Deleted:        msg.IsDeleted,
		Reactions:      []ReactionView{},
		CreatedAt:      msg.CreatedAt,
	}, true
}
