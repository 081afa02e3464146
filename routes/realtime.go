package routes

import (
	"chatsev-backend/middleware"
	"chatsev-backend/realtime"

	"github.com/gin-gonic/gin"
)

func RealtimeRoutes(r *gin.Engine) {
	realtimeGroup := r.Group("/realtime")
	realtimeGroup.Use(middleware.JWTAuth())
	{
		realtimeGroup.GET("/ws", realtime.DefaultHub.ServeWS)
	}
}
