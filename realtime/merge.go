package realtime

import (
	"chatsev-backend/models"
)

// Merge reconciles one change-feed event into a locally held,
// optimistically updated message list. The list is ordered by creation
// time ascending and Merge never re-sorts it: inserts append (new
// messages are newer than everything fetched), updates patch in place,
// since edits and deletes do not move a message in time.
//
// selfID is the local user: inserts they authored are skipped because
// the send path already applied them optimistically, and the id check
// makes redelivery of any insert a no-op.
func Merge(local []models.MessageView, event Event, selfID string) []models.MessageView {
	switch event.Type {
	case EventMessageInsert:
		if event.Message == nil {
			return local
		}
		if event.Message.SenderID == selfID {
			return local
		}
		for i := range local {
			if local[i].ID == event.Message.ID {
				return local
			}
		}
		view := *event.Message
		// First observation by this client counts as delivery
		if view.Status == models.StatusSent {
			view.Status = models.StatusDelivered
		}
		return append(local, view)

	case EventMessageUpdate:
		if event.Message == nil {
			return local
		}
		for i := range local {
			if local[i].ID == event.Message.ID {
				patched := *event.Message
				// Reactions travel on their own events, keep the
				// local set when the update carries none
				if len(patched.Reactions) == 0 {
					patched.Reactions = local[i].Reactions
				}
				local[i] = patched
				break
			}
		}
		return local

	case EventMessageDelete:
		// Physical removal (inspector purge). Soft deletes arrive as
		// updates and keep their slot.
		out := local[:0]
		for _, view := range local {
			if view.ID != event.MessageID {
				out = append(out, view)
			}
		}
		return out

	case EventReactionInsert:
		for i := range local {
			if local[i].ID != event.MessageID {
				continue
			}
			reactions := local[i].Reactions
			replaced := false
			for j := range reactions {
				if reactions[j].UserID == event.ActorID {
					reactions[j].Emoji = event.Emoji
					replaced = true
					break
				}
			}
			if !replaced {
				reactions = append(reactions, models.ReactionView{UserID: event.ActorID, Emoji: event.Emoji})
			}
			local[i].Reactions = reactions
			break
		}
		return local

	case EventReactionDelete:
		for i := range local {
			if local[i].ID != event.MessageID {
				continue
			}
			reactions := local[i].Reactions[:0]
			for _, reaction := range local[i].Reactions {
				if reaction.UserID != event.ActorID {
					reactions = append(reactions, reaction)
				}
			}
			local[i].Reactions = reactions
			break
		}
		return local
	}

	return local
}
