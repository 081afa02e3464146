package media

import (
	"net/http"

	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
)

// @Summary Upload a message attachment
// @Description Resolve an uploaded file into a durable URL. The returned reference is what gets stored on a message, the bytes live with the media provider
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param kind formData string true "Attachment kind: image, video, voice or file"
// @Security BearerAuth
// @Success 200 {object} map[string]string "url: Durable URL"
// @Failure 400 {object} map[string]string "error: Invalid upload"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /media [post]
func UploadAttachment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	kind := c.PostForm("kind")
	if kind == "" {
		kind = "file"
	}

	url, err := utils.UploadAttachment(file, kind)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error uploading attachment")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
