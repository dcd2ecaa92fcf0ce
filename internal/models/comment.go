package models

import "gorm.io/gorm"

// Comment is a user comment attached to either a single catalog entry
// (GameTorrentID set) or a whole title-group (GameGroup set to the group key).
type Comment struct {
	gorm.Model
	UserID        uint    `gorm:"not null;index"`
	GameTorrentID *uint   `gorm:"index"`
	GameGroup     *string `gorm:"size:512;index"`
	Content       string  `gorm:"size:1000;not null"`

	User User `gorm:"foreignKey:UserID"`
}
