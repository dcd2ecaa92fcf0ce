package models

import (
	"time"

	"gorm.io/gorm"
)

// FeedSource is the catalog record for one external feed, as listed by the
// bulk feed index. LastGameCount is compared against the index's reported
// count to skip unchanged feeds on the next bulk run.
type FeedSource struct {
	gorm.Model
	Title         string `gorm:"size:255;uniqueIndex;not null"`
	Description   string
	URL           string   `gorm:"size:1024;not null"`
	GamesCount    string   `gorm:"size:50"`
	Status        []string `gorm:"serializer:json"`
	AddedDate     string   `gorm:"size:100"`
	LastFetched   *time.Time
	LastGameCount int `gorm:"not null;default:0"`
}
