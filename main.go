package main

import (
	"context"
	"log"
	"os"

	"chatsev-backend/db"
	_ "chatsev-backend/docs"
	"chatsev-backend/realtime"
	"chatsev-backend/routes"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
)

// @title API Chatsev Backend
// @version 1.0
// @description Direct-conversation messaging API for the Chatsev social app
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)

	db.InitDB()
	db.InitRedis()

	if err := utils.InitCloudinary(); err != nil {
		log.Printf("Warning: Cloudinary initialization failed: %v", err)
		log.Println("Attachment uploads will not work correctly.")
	}

	go realtime.DefaultHub.Run(context.Background())

	r := routes.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Error starting the server:", err)
	}
}
