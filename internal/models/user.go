package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system.
type User struct {
	gorm.Model
	Username     string `gorm:"size:20;uniqueIndex;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Avatar       string `gorm:"size:512"`
	JoinDate     time.Time
	IsAdmin      bool `gorm:"not null;default:false;index"`

	// Shares the game_likes join table with GameTorrent.LikedBy.
	LikedGames []*GameTorrent `gorm:"many2many:game_likes;"`
	Comments   []Comment
}
