package routes

import (
	"chatsev-backend/handlers/users"
	"chatsev-backend/middleware"

	"github.com/gin-gonic/gin"
)

func UsersRoutes(r *gin.Engine) {
	usersGroup := r.Group("/users")
	usersGroup.Use(middleware.JWTAuth())
	{
		usersGroup.GET("/me", users.GetMe)
		usersGroup.GET("/:id", users.GetProfile)
		usersGroup.POST("/:id/block", users.ToggleBlock)
	}
}
