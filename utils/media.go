package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Media reference resolver: an uploaded file handle goes in, a durable
// URL comes out. The messaging core only ever stores the returned
// reference string, never the bytes.

var cld *cloudinary.Cloudinary

// InitCloudinary initializes the Cloudinary connection
func InitCloudinary() error {
	var err error

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return fmt.Errorf("the Cloudinary environment variables are not defined")
	}

	cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return fmt.Errorf("error initializing Cloudinary: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = cld.Admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("error verifying the Cloudinary connection: %v", err)
	}

	LogSuccess("Cloudinary initialized, connection verified")
	return nil
}

func boolPointer(b bool) *bool {
	return &b
}

var attachmentFolders = map[string]string{
	"image": "messages/images",
	"video": "messages/videos",
	"voice": "messages/voice",
	"file":  "messages/files",
}

func isValidImageType(filename string) bool {
	validExtensions := []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
	lowerFilename := strings.ToLower(filename)

	for _, ext := range validExtensions {
		if strings.HasSuffix(lowerFilename, ext) {
			return true
		}
	}
	return false
}

// UploadAttachment resolves a message attachment into a durable URL.
// kind is one of image, video, voice or file.
func UploadAttachment(file *multipart.FileHeader, kind string) (string, error) {
	folder, ok := attachmentFolders[kind]
	if !ok {
		return "", fmt.Errorf("unsupported attachment kind: %s", kind)
	}

	if kind == "image" && !isValidImageType(file.Filename) {
		return "", fmt.Errorf("unsupported image format, use JPG, PNG, GIF, WEBP or BMP")
	}

	// 25MB cap, the UI rejects larger files before uploading
	if file.Size > 25*1024*1024 {
		return "", fmt.Errorf("file too large, maximum 25MB allowed")
	}

	if cld == nil {
		if err := InitCloudinary(); err != nil {
			return "", err
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error opening the uploaded file: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := cld.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:         folder,
		ResourceType:   "auto",
		UseFilename:    boolPointer(true),
		UniqueFilename: boolPointer(true),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading the attachment: %v", err)
	}

	return resp.SecureURL, nil
}
