package routes

import (
	"chatsev-backend/handlers/messages"
	"chatsev-backend/middleware"

	"github.com/gin-gonic/gin"
)

func MessagesRoutes(r *gin.Engine) {
	messagesGroup := r.Group("/messages")
	messagesGroup.Use(middleware.JWTAuth())
	{
		messagesGroup.PUT("/:id", messages.EditMessage)
		messagesGroup.DELETE("/:id", messages.DeleteMessage)
		messagesGroup.POST("/:id/reactions", messages.ToggleReaction)
		messagesGroup.POST("/:id/delivered", messages.MarkDelivered)
	}
}
