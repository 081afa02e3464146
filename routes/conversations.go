package routes

import (
	"chatsev-backend/handlers/conversations"
	"chatsev-backend/handlers/messages"
	"chatsev-backend/handlers/presence"
	"chatsev-backend/middleware"

	"github.com/gin-gonic/gin"
)

func ConversationsRoutes(r *gin.Engine) {
	conversationsGroup := r.Group("/conversations")
	conversationsGroup.Use(middleware.JWTAuth())
	{
		conversationsGroup.POST("", conversations.GetOrCreateConversation)
		conversationsGroup.GET("", conversations.ListConversations)
		conversationsGroup.PUT("/:id/settings", conversations.UpdateSettings)
		conversationsGroup.DELETE("/:id", conversations.DeleteConversation)

		conversationsGroup.POST("/:id/messages", messages.SendMessage)
		conversationsGroup.GET("/:id/messages", messages.FetchMessages)
		conversationsGroup.POST("/:id/read", messages.MarkAllRead)

		conversationsGroup.PUT("/:id/typing", presence.SetTyping)
		conversationsGroup.GET("/:id/typing", presence.GetTyping)
	}
}
