package models

import (
	"time"
)

// Gif is catalogued GIF metadata referenced by messages. Management of
// the catalogue itself lives in the admin surface, the messaging core
// only resolves references.
type Gif struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title      string    `json:"title"`
	URL        string    `json:"url" gorm:"column:url"`
	PreviewURL string    `json:"previewUrl" gorm:"column:preview_url"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Gif) TableName() string {
	return "gifs"
}
