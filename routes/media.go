package routes

import (
	"chatsev-backend/handlers/media"
	"chatsev-backend/middleware"

	"github.com/gin-gonic/gin"
)

func MediaRoutes(r *gin.Engine) {
	mediaGroup := r.Group("/media")
	mediaGroup.Use(middleware.JWTAuth())
	{
		mediaGroup.POST("", media.UploadAttachment)
	}
}
