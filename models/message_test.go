package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanEditAt_WindowBoundaries(t *testing.T) {
	created := time.Now()
	msg := Message{CreatedAt: created}

	assert.True(t, msg.CanEditAt(created.Add(14*time.Minute+59*time.Second)))
	assert.False(t, msg.CanEditAt(created.Add(15*time.Minute+1*time.Second)))
}

func TestCanDeleteForEveryoneAt_WindowBoundaries(t *testing.T) {
	created := time.Now()
	msg := Message{CreatedAt: created}

	assert.True(t, msg.CanDeleteForEveryoneAt(created.Add(9*time.Minute+59*time.Second)))
	assert.False(t, msg.CanDeleteForEveryoneAt(created.Add(10*time.Minute+1*time.Second)))
}

func TestApplyDeleteTransform_ShadowCopiesAndNulls(t *testing.T) {
	now := time.Now()
	msg := Message{
		Content:       "hello there",
		Images:        []string{"https://cdn.example/img1.jpg"},
		VideoURL:      "https://cdn.example/clip.mp4",
		VoiceURL:      "https://cdn.example/voice.ogg",
		VoiceDuration: 12,
		FileURL:       "https://cdn.example/doc.pdf",
		GifID:         "gif123",
	}

	msg.ApplyDeleteTransform("user1", true, now)

	assert.True(t, msg.IsDeleted)
	assert.True(t, msg.DeletedForEveryone)
	assert.Equal(t, "user1", msg.DeletedBy)
	assert.Equal(t, now, *msg.DeletedAt)

	// Live fields are nulled
	assert.Empty(t, msg.Content)
	assert.Empty(t, msg.Images)
	assert.Empty(t, msg.VideoURL)
	assert.Empty(t, msg.VoiceURL)
	assert.Zero(t, msg.VoiceDuration)
	assert.Empty(t, msg.FileURL)
	assert.Empty(t, msg.GifID)

	// The shadow copy keeps the original content
	assert.Equal(t, "hello there", msg.OriginalContent)
	assert.Equal(t, "https://cdn.example/img1.jpg", msg.OriginalImages[0])
	assert.Equal(t, "https://cdn.example/clip.mp4", msg.OriginalVideoURL)
	assert.Equal(t, "https://cdn.example/voice.ogg", msg.OriginalVoiceURL)
	assert.Equal(t, "https://cdn.example/doc.pdf", msg.OriginalFileURL)
	assert.Equal(t, "gif123", msg.OriginalGifID)
}

func TestApplyDeleteTransform_SecondDeleteKeepsFirstShadow(t *testing.T) {
	now := time.Now()
	msg := Message{Content: "original"}

	msg.ApplyDeleteTransform("user1", false, now)
	assert.Equal(t, "original", msg.OriginalContent)
	assert.False(t, msg.DeletedForEveryone)

	// A later delete-for-everyone must not overwrite the shadow copy
	// with the already-nulled live fields
	msg.ApplyDeleteTransform("user1", true, now.Add(time.Minute))
	assert.Equal(t, "original", msg.OriginalContent)
	assert.True(t, msg.DeletedForEveryone)
}

func TestDeleteTransformUpdates_NeverCarriesStatus(t *testing.T) {
	now := time.Now()
	msg := Message{Content: "hello", Status: StatusRead}
	msg.ApplyDeleteTransform("user1", false, now)

	updates := msg.DeleteTransformUpdates()

	_, hasStatus := updates["status"]
	assert.False(t, hasStatus)
	_, hasReadAt := updates["read_at"]
	assert.False(t, hasReadAt)

	assert.Equal(t, true, updates["is_deleted"])
	assert.Equal(t, "hello", updates["original_content"])
	assert.Equal(t, "", updates["content"])
}

func TestRestoreOriginal(t *testing.T) {
	now := time.Now()
	msg := Message{Content: "secret", GifID: "gif9"}
	msg.ApplyDeleteTransform("user2", false, now)

	msg.RestoreOriginal()

	assert.Equal(t, "secret", msg.Content)
	assert.Equal(t, "gif9", msg.GifID)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello", (&Message{Content: "hello"}).Preview())
	assert.Equal(t, "📷 Photo", (&Message{Images: []string{"a.jpg"}}).Preview())
	assert.Equal(t, "🎥 Video", (&Message{VideoURL: "a.mp4"}).Preview())
	assert.Equal(t, "🎤 Voice message", (&Message{VoiceURL: "a.ogg"}).Preview())
	assert.Equal(t, "📎 File", (&Message{FileURL: "a.pdf"}).Preview())
	assert.Equal(t, "GIF", (&Message{GifID: "gif1"}).Preview())
	assert.Equal(t, RemovedPlaceholder, (&Message{IsDeleted: true}).Preview())

	long := strings.Repeat("x", 120)
	preview := (&Message{Content: long}).Preview()
	assert.Equal(t, strings.Repeat("x", 80)+"…", preview)
}

func TestMediaCount(t *testing.T) {
	assert.Equal(t, 0, (&MessageCreate{Content: "just text"}).MediaCount())
	assert.Equal(t, 1, (&MessageCreate{Images: []string{"a.jpg", "b.jpg"}}).MediaCount())
	assert.Equal(t, 2, (&MessageCreate{VideoURL: "a.mp4", GifID: "gif1"}).MediaCount())
}

func TestBuildView_PrivilegedReconstruction(t *testing.T) {
	now := time.Now()
	msg := Message{ID: "m1", Content: "secret", GifID: "gif1"}
	msg.ApplyDeleteTransform("user2", false, now)

	view, visible := BuildView(msg, true)

	assert.True(t, visible)
	assert.True(t, view.Deleted)
	assert.Equal(t, "secret", view.Content)
	assert.Equal(t, "gif1", view.GifID)
}

func TestBuildView_DeleteForMeHiddenFromOrdinaryViewers(t *testing.T) {
	msg := Message{ID: "m1", Content: "secret"}
	msg.ApplyDeleteTransform("user2", false, time.Now())

	_, visible := BuildView(msg, false)
	assert.False(t, visible)
}

func TestBuildView_DeleteForEveryonePlaceholder(t *testing.T) {
	msg := Message{ID: "m1", Content: "secret", Images: []string{"a.jpg"}}
	msg.ApplyDeleteTransform("user1", true, time.Now())

	view, visible := BuildView(msg, false)

	assert.True(t, visible)
	assert.True(t, view.Deleted)
	assert.Equal(t, RemovedPlaceholder, view.Content)
	assert.Empty(t, view.Images)
}

func TestBuildView_LiveMessageUntouched(t *testing.T) {
	msg := Message{ID: "m1", Content: "hello", Status: StatusSent}

	view, visible := BuildView(msg, false)

	assert.True(t, visible)
	assert.False(t, view.Deleted)
	assert.Equal(t, "hello", view.Content)
	assert.Equal(t, StatusSent, view.Status)
}
