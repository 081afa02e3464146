// Package notifications is the fire-and-forget dispatcher: a summary
// is pushed onto the target user's notification channel and failures
// are logged, never surfaced to the triggering operation.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/utils"
)

type Notification struct {
	Type      string    `json:"type"` // message | reaction
	FromID    string    `json:"fromId"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notify dispatches asynchronously and returns immediately.
func Notify(targetUserID string, notification Notification) {
	go func() {
		if db.Redis == nil {
			return
		}
		notification.CreatedAt = time.Now()

		payload, err := json.Marshal(notification)
		if err != nil {
			utils.LogError(err, "Error marshaling notification")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := db.Redis.Publish(ctx, "notify:"+targetUserID, payload).Err(); err != nil {
			utils.LogErrorWithUser(targetUserID, err, "Error dispatching notification")
		}
	}()
}
