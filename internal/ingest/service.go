package ingest

import (
	"context"
	"net/http"
	"time"

	"hivegames/backend/internal/classifier"
	"hivegames/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service applies feeds to the catalog. Per-record failures are logged and
// skipped; only request-level failures (database unreachable) are returned.
type Service struct {
	db  *gorm.DB
	cls classifier.Classifier

	client     *http.Client
	now        func() time.Time
	chunkSize  int
	chunkPause time.Duration
}

func NewService(db *gorm.DB, cls classifier.Classifier) *Service {
	return &Service{
		db:         db,
		cls:        cls,
		client:     &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
		chunkSize:  200,
		chunkPause: time.Second,
	}
}

// UpsertStats summarizes one feed ingestion.
type UpsertStats struct {
	Processed       int `json:"processed"`
	Created         int `json:"created"`
	SourcesAdded    int `json:"sourcesAdded"`
	SourcesReplaced int `json:"sourcesReplaced"`
}

// GamesAdded counts new entries plus sources appended to existing entries.
func (s UpsertStats) GamesAdded() int {
	return s.Created + s.SourcesAdded
}

// UpsertFeed merges one parsed feed into the catalog. Existing (title, source
// name) pairs are replaced in place; new titles are classified before
// creation. Classification never fails the ingestion.
func (s *Service) UpsertFeed(ctx context.Context, feed *Feed) (*UpsertStats, error) {
	now := s.now()

	records := make([]Record, 0, len(feed.Downloads))
	for _, d := range feed.Downloads {
		r, ok := NormalizeRecord(feed.Name, d, now)
		if !ok {
			log.Warn().Str("source", feed.Name).Msg("skipping record with missing title")
			continue
		}
		records = append(records, r)
	}

	seen := make(map[string]bool, len(records))
	titles := make([]string, 0, len(records))
	for _, r := range records {
		if !seen[r.Title] {
			seen[r.Title] = true
			titles = append(titles, r.Title)
		}
	}

	var existing []models.GameTorrent
	if len(titles) > 0 {
		if err := s.db.WithContext(ctx).Preload("Sources").Where("title IN ?", titles).Find(&existing).Error; err != nil {
			return nil, err
		}
	}

	actions := PlanMerge(existing, records)

	var toClassify []string
	for _, a := range actions {
		if a.Kind == CreateEntry {
			toClassify = append(toClassify, a.Record.Title)
		}
	}
	classified := map[string]classifier.Result{}
	if len(toClassify) > 0 {
		classified = s.cls.Classify(ctx, toClassify)
	}

	stats := &UpsertStats{}
	for _, a := range actions {
		if err := s.apply(ctx, a, classified, now); err != nil {
			log.Error().Err(err).Str("title", a.Record.Title).Str("source", a.Record.SourceName).Msg("failed to apply record")
			continue
		}
		stats.Processed++
		switch a.Kind {
		case CreateEntry:
			stats.Created++
		case AppendSource:
			stats.SourcesAdded++
		case ReplaceSource:
			stats.SourcesReplaced++
		}
	}

	log.Info().
		Str("source", feed.Name).
		Int("processed", stats.Processed).
		Int("created", stats.Created).
		Msg("feed ingested")

	return stats, nil
}

func (s *Service) apply(ctx context.Context, a Action, classified map[string]classifier.Result, now time.Time) error {
	db := s.db.WithContext(ctx)

	switch a.Kind {
	case CreateEntry:
		res := classified[a.Record.Title]

		genres := a.Record.Genres
		if len(genres) == 0 {
			genres = res.Genres
		}
		if len(genres) == 0 {
			genres = []string{classifier.DefaultGenre}
		}

		entry := models.GameTorrent{
			Title:      a.Record.Title,
			CleanTitle: res.CleanTitle,
			Version:    res.Version,
			Genres:     genres,
			Sources:    []models.Source{sourceFromRecord(a.Record)},
		}
		return db.Create(&entry).Error

	case AppendSource:
		entryID := a.EntryID
		if entryID == 0 {
			var entry models.GameTorrent
			if err := db.Where("title = ?", a.Record.Title).First(&entry).Error; err != nil {
				return err
			}
			entryID = entry.ID
		}

		src := sourceFromRecord(a.Record)
		src.GameTorrentID = entryID
		if err := db.Create(&src).Error; err != nil {
			return err
		}
		return db.Model(&models.GameTorrent{}).Where("id = ?", entryID).Update("updated_at", now).Error

	default: // ReplaceSource
		var src models.Source
		if a.SourceID != 0 {
			if err := db.First(&src, a.SourceID).Error; err != nil {
				return err
			}
		} else {
			err := db.Joins("JOIN game_torrents ON game_torrents.id = sources.game_torrent_id").
				Where("game_torrents.title = ? AND sources.name = ?", a.Record.Title, a.Record.SourceName).
				First(&src).Error
			if err != nil {
				return err
			}
		}

		src.URIs = a.Record.URIs
		src.UploadDate = a.Record.UploadDate
		src.FileSize = a.Record.FileSize
		if err := db.Save(&src).Error; err != nil {
			return err
		}
		return db.Model(&models.GameTorrent{}).Where("id = ?", src.GameTorrentID).Update("updated_at", now).Error
	}
}

func sourceFromRecord(r Record) models.Source {
	return models.Source{
		Name:       r.SourceName,
		URIs:       r.URIs,
		UploadDate: r.UploadDate,
		FileSize:   r.FileSize,
	}
}
