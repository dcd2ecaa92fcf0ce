package models

import (
	"time"

	"gorm.io/gorm"
)

// GameTorrent represents a unique release title in the catalog.
// Title is globally unique; entries sharing the same CleanTitle form a
// title-group and are presented as one logical game.
type GameTorrent struct {
	gorm.Model
	Title      string   `gorm:"size:512;uniqueIndex;not null"`
	CleanTitle string   `gorm:"size:512;index"`
	Version    string   `gorm:"size:255"`
	Genres     []string `gorm:"serializer:json"`
	Likes      int      `gorm:"not null;default:0"`
	LikedBy    []*User  `gorm:"many2many:game_likes;"`
	Sources    []Source
	Comments   []Comment
}

// Source is one named origin (repack group, mirror, ...) contributing
// download URIs for a title. A title never holds two sources with the
// same name; re-ingesting the same (title, source) pair replaces in place.
type Source struct {
	gorm.Model
	GameTorrentID uint     `gorm:"not null;uniqueIndex:idx_game_source"`
	Name          string   `gorm:"size:255;not null;uniqueIndex:idx_game_source"`
	URIs          []string `gorm:"serializer:json"`
	UploadDate    time.Time
	FileSize      string `gorm:"size:100;not null;default:'Unknown'"`
}
