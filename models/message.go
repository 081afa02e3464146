package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

const (
	// EditWindow is how long after creation a text message stays editable.
	EditWindow = 15 * time.Minute
	// DeleteForEveryoneWindow is how long the sender can retract a
	// message for both participants. Delete-for-me has no window.
	DeleteForEveryoneWindow = 10 * time.Minute

	// RemovedPlaceholder replaces the content of a message deleted for
	// everyone when rendered to a non-privileged viewer.
	RemovedPlaceholder = "Message was removed"
)

// Message is one entry of a conversation. Soft deletion is a
// visibility transform: the live content fields are nulled and a
// shadow copy is kept in the Original* fields, so a privileged
// inspector can still reconstruct what was sent.
type Message struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ConversationID string         `json:"conversationId" gorm:"column:conversation_id;index"`
	SenderID       string         `json:"senderId" gorm:"column:sender_id"`
	Content        string         `json:"content"`
	Images         pq.StringArray `json:"images" gorm:"type:text[]"`
	VideoURL       string         `json:"videoUrl" gorm:"column:video_url"`
	VoiceURL       string         `json:"voiceUrl" gorm:"column:voice_url"`
	VoiceDuration  int            `json:"voiceDuration" gorm:"column:voice_duration"`
	FileURL        string         `json:"fileUrl" gorm:"column:file_url"`
	GifID          string         `json:"gifId" gorm:"column:gif_id"`
	ReplyToID      string         `json:"replyToId" gorm:"column:reply_to_id"`

	Status MessageStatus `json:"status" gorm:"default:SENT"`
	ReadAt *time.Time    `json:"readAt,omitempty"`

	IsEdited bool       `json:"isEdited" gorm:"default:false"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	IsDeleted          bool       `json:"isDeleted" gorm:"default:false"`
	DeletedForEveryone bool       `json:"deletedForEveryone" gorm:"default:false"`
	DeletedBy          string     `json:"deletedBy,omitempty" gorm:"column:deleted_by"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`

	// Shadow copy written once by ApplyDeleteTransform
	OriginalContent  string         `json:"-" gorm:"column:original_content"`
	OriginalImages   pq.StringArray `json:"-" gorm:"column:original_images;type:text[]"`
	OriginalVideoURL string         `json:"-" gorm:"column:original_video_url"`
	OriginalVoiceURL string         `json:"-" gorm:"column:original_voice_url"`
	OriginalFileURL  string         `json:"-" gorm:"column:original_file_url"`
	OriginalGifID    string         `json:"-" gorm:"column:original_gif_id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MessageCreate model for sending a message
// @Description model for sending a message: text and/or exactly one media reference
type MessageCreate struct {
	Content       string   `json:"content"`
	Images        []string `json:"images"`
	VideoURL      string   `json:"videoUrl"`
	VoiceURL      string   `json:"voiceUrl"`
	VoiceDuration int      `json:"voiceDuration"`
	FileURL       string   `json:"fileUrl"`
	GifID         string   `json:"gifId"`
	ReplyToID     string   `json:"replyToId"`
}

// MessageEdit model for editing a text message
// @Description model for editing the text of a message
type MessageEdit struct {
	Content string `json:"content" binding:"required"`
}

// ReactionCreate model for toggling a reaction
// @Description model for toggling a reaction on a message
type ReactionCreate struct {
	Emoji string `json:"emoji" binding:"required"`
}

// MediaCount returns how many distinct media references the payload
// carries. The UI sends at most one kind per message.
func (m *MessageCreate) MediaCount() int {
	count := 0
	if len(m.Images) > 0 {
		count++
	}
	if m.VideoURL != "" {
		count++
	}
	if m.VoiceURL != "" {
		count++
	}
	if m.FileURL != "" {
		count++
	}
	if m.GifID != "" {
		count++
	}
	return count
}

// HasMedia reports whether the message carries anything besides text.
// Edited messages must be pure text.
func (m *Message) HasMedia() bool {
	return len(m.Images) > 0 || m.VideoURL != "" || m.VoiceURL != "" || m.FileURL != "" || m.GifID != ""
}

// CanEditAt reports whether actor may still edit the message at now.
// The caller re-validates at write time with a fresh timestamp.
func (m *Message) CanEditAt(now time.Time) bool {
	return now.Sub(m.CreatedAt) <= EditWindow
}

// CanDeleteForEveryoneAt reports whether the retract window is still
// open at now.
func (m *Message) CanDeleteForEveryoneAt(now time.Time) bool {
	return now.Sub(m.CreatedAt) <= DeleteForEveryoneWindow
}

// ApplyDeleteTransform shadow-copies every content field into its
// Original* counterpart, nulls the live fields and marks the message
// deleted. It is the single soft-delete path, shared by single delete,
// bulk conversation delete and delete-for-everyone. Calling it on an
// already deleted message keeps the first shadow copy intact.
func (m *Message) ApplyDeleteTransform(actorID string, forEveryone bool, now time.Time) {
	if !m.IsDeleted {
		m.OriginalContent = m.Content
		m.OriginalImages = m.Images
		m.OriginalVideoURL = m.VideoURL
		m.OriginalVoiceURL = m.VoiceURL
		m.OriginalFileURL = m.FileURL
		m.OriginalGifID = m.GifID
	}

	m.Content = ""
	m.Images = nil
	m.VideoURL = ""
	m.VoiceURL = ""
	m.VoiceDuration = 0
	m.FileURL = ""
	m.GifID = ""

	m.IsDeleted = true
	m.DeletedBy = actorID
	m.DeletedAt = &now
	if forEveryone {
		m.DeletedForEveryone = true
	}
}

// DeleteTransformUpdates lists exactly the columns ApplyDeleteTransform
// wrote, for a column-scoped UPDATE. Persisting only these leaves a
// concurrent status transition intact instead of writing back the
// status read before the transform.
func (m *Message) DeleteTransformUpdates() map[string]interface{} {
	return map[string]interface{}{
		"content":              m.Content,
		"images":               m.Images,
		"video_url":            m.VideoURL,
		"voice_url":            m.VoiceURL,
		"voice_duration":       m.VoiceDuration,
		"file_url":             m.FileURL,
		"gif_id":               m.GifID,
		"is_deleted":           m.IsDeleted,
		"deleted_for_everyone": m.DeletedForEveryone,
		"deleted_by":           m.DeletedBy,
		"deleted_at":           m.DeletedAt,
		"original_content":     m.OriginalContent,
		"original_images":      m.OriginalImages,
		"original_video_url":   m.OriginalVideoURL,
		"original_voice_url":   m.OriginalVoiceURL,
		"original_file_url":    m.OriginalFileURL,
		"original_gif_id":      m.OriginalGifID,
	}
}

// RestoreOriginal copies the shadow fields back into the live fields.
// Only the privileged reconstruction view calls this, on an in-memory
// copy, never against storage.
func (m *Message) RestoreOriginal() {
	m.Content = m.OriginalContent
	m.Images = m.OriginalImages
	m.VideoURL = m.OriginalVideoURL
	m.VoiceURL = m.OriginalVoiceURL
	m.FileURL = m.OriginalFileURL
	m.GifID = m.OriginalGifID
}

// Preview derives the conversation list excerpt for this message: a
// text excerpt, or one fixed glyph per media type.
func (m *Message) Preview() string {
	if m.IsDeleted {
		return RemovedPlaceholder
	}
	if content := strings.TrimSpace(m.Content); content != "" {
		runes := []rune(content)
		if len(runes) > 80 {
			return string(runes[:80]) + "…"
		}
		return content
	}
	switch {
	case len(m.Images) > 0:
		return "📷 Photo"
	case m.VideoURL != "":
		return "🎥 Video"
	case m.VoiceURL != "":
		return "🎤 Voice message"
	case m.FileURL != "":
		return "📎 File"
	case m.GifID != "":
		return "GIF"
	}
	return ""
}

func (Message) TableName() string {
	return "messages"
}
