package models

import (
	"time"
)

type Role string

const (
	AdminRole     Role = "ADMIN"
	UserRole      Role = "USER"
	InspectorRole Role = "INSPECTOR"
)

type User struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email          string     `json:"email" binding:"required,email"`
	Password       string     `json:"-"`
	UserName       string     `json:"username"`
	Role           Role       `json:"role" gorm:"default:USER"`
	Bio            string     `json:"bio"`
	ProfilePicture string     `json:"profilePicture"`
	Gender         string     `json:"gender"`
	Enable         bool       `json:"enable" gorm:"default:true"`
	MessageEnable  bool       `json:"messageEnable" gorm:"default:true"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// UserCreate model for registering a new user
// @Description model for registering a new user
type UserCreate struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// ProfileSnapshot is the minimal public view of a user joined into
// conversation lists and message pages
type ProfileSnapshot struct {
	ID             string `json:"id"`
	UserName       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Gender         string `json:"gender"`
}

func (u *User) Snapshot() ProfileSnapshot {
	return ProfileSnapshot{
		ID:             u.ID,
		UserName:       u.UserName,
		ProfilePicture: u.ProfilePicture,
		Gender:         u.Gender,
	}
}

func (User) TableName() string {
	return "users"
}
