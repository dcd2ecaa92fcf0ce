package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"hivegames/backend/internal/jobs"
	"hivegames/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FeedIndex is the bulk aggregator's listing of external feeds.
type FeedIndex struct {
	Sources []FeedIndexEntry `json:"sources"`
}

type FeedIndexEntry struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	GamesCount  string   `json:"gamesCount"`
	Description string   `json:"description,omitempty"`
	Status      []string `json:"status,omitempty"`
	AddedDate   string   `json:"addedDate,omitempty"`
}

// FeedResult records the outcome of one feed during a bulk run.
type FeedResult struct {
	Source         string `json:"source"`
	Status         string `json:"status"` // success | skipped | no_games | error
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
	GameCount      int    `json:"gameCount,omitempty"`
	GamesProcessed int    `json:"gamesProcessed,omitempty"`
	GamesAdded     int    `json:"gamesAdded,omitempty"`
}

// AutoFetchSummary is the user-visible result of a bulk run.
type AutoFetchSummary struct {
	TotalSources     int          `json:"totalSources"`
	ProcessedSources int          `json:"processedSources"`
	SkippedSources   int          `json:"skippedSources"`
	TotalGamesAdded  int          `json:"totalGamesAdded"`
	Results          []FeedResult `json:"results"`
}

// AutoFetch pulls the feed index and ingests every listed feed sequentially.
// Feeds whose reported game count is unchanged since the last run are skipped.
// Per-feed failures are recorded in the summary and never halt the run; only
// an unreachable or unparseable index fails the whole operation. Progress is
// written to the given job as the run advances.
func (s *Service) AutoFetch(ctx context.Context, indexURL string, jm *jobs.Manager, jobID string) (*AutoFetchSummary, error) {
	update := func(fn func(*jobs.Job)) {
		if jm != nil {
			jm.Update(jobID, fn)
		}
	}

	log.Info().Str("index", indexURL).Msg("starting bulk auto-fetch")
	update(func(j *jobs.Job) { j.Phase = "fetching feed index" })

	body, err := s.fetchBody(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed index: %w", err)
	}

	var index FeedIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("parsing feed index: %w", err)
	}

	update(func(j *jobs.Job) {
		j.Phase = "processing feeds"
		j.Total = len(index.Sources)
	})

	summary := &AutoFetchSummary{TotalSources: len(index.Sources)}
	for i, entry := range index.Sources {
		update(func(j *jobs.Job) {
			j.Current = i + 1
			j.CurrentSource = entry.Title
		})

		result := s.processIndexEntry(ctx, entry)
		summary.Results = append(summary.Results, result)

		switch result.Status {
		case "success":
			summary.ProcessedSources++
			summary.TotalGamesAdded += result.GamesAdded
		case "skipped":
			summary.SkippedSources++
		}
	}

	log.Info().
		Int("processed", summary.ProcessedSources).
		Int("skipped", summary.SkippedSources).
		Int("gamesAdded", summary.TotalGamesAdded).
		Msg("bulk auto-fetch completed")

	return summary, nil
}

func (s *Service) processIndexEntry(ctx context.Context, entry FeedIndexEntry) FeedResult {
	currentCount, _ := strconv.Atoi(entry.GamesCount)

	var existing *models.FeedSource
	var fs models.FeedSource
	err := s.db.WithContext(ctx).Where("title = ?", entry.Title).First(&fs).Error
	switch {
	case err == nil:
		existing = &fs
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return FeedResult{Source: entry.Title, Status: "error", Error: err.Error()}
	}

	if existing != nil && existing.LastGameCount == currentCount {
		log.Info().Str("feed", entry.Title).Int("gameCount", currentCount).Msg("feed unchanged, skipping")
		return FeedResult{Source: entry.Title, Status: "skipped", Reason: "No new games", GameCount: currentCount}
	}

	body, err := s.fetchBody(ctx, entry.URL)
	if err != nil {
		log.Error().Err(err).Str("feed", entry.Title).Msg("feed fetch failed")
		return FeedResult{Source: entry.Title, Status: "error", Error: err.Error()}
	}

	feed, err := ParseFeedBody(body, entry.Title)
	if err != nil {
		log.Error().Err(err).Str("feed", entry.Title).Msg("feed body not understood")
		return FeedResult{Source: entry.Title, Status: "error", Error: err.Error()}
	}

	if len(feed.Downloads) == 0 {
		return FeedResult{Source: entry.Title, Status: "no_games"}
	}

	// Chunked so one feed can't flood the classifier's rate limit or the
	// database in a single burst.
	var gamesAdded, processed int
	for i := 0; i < len(feed.Downloads); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(feed.Downloads) {
			end = len(feed.Downloads)
		}

		stats, err := s.UpsertFeed(ctx, &Feed{Name: feed.Name, Downloads: feed.Downloads[i:end]})
		if err != nil {
			log.Error().Err(err).Str("feed", entry.Title).Msg("chunk ingestion failed")
			continue
		}
		gamesAdded += stats.GamesAdded()
		processed += stats.Processed

		if end < len(feed.Downloads) {
			if err := pause(ctx, s.chunkPause); err != nil {
				break
			}
		}
	}

	if err := s.saveFeedSource(ctx, existing, entry, currentCount); err != nil {
		log.Error().Err(err).Str("feed", entry.Title).Msg("failed to record feed state")
	}

	return FeedResult{
		Source:         entry.Title,
		Status:         "success",
		GamesProcessed: len(feed.Downloads),
		GamesAdded:     gamesAdded,
	}
}

func (s *Service) saveFeedSource(ctx context.Context, existing *models.FeedSource, entry FeedIndexEntry, currentCount int) error {
	now := s.now()

	description := entry.Description
	if description == "" {
		description = "Auto-fetched source"
	}
	status := entry.Status
	if len(status) == 0 {
		status = []string{"Unknown"}
	}

	if existing != nil {
		existing.Description = description
		existing.URL = entry.URL
		existing.GamesCount = entry.GamesCount
		existing.Status = status
		existing.AddedDate = entry.AddedDate
		existing.LastFetched = &now
		existing.LastGameCount = currentCount
		return s.db.WithContext(ctx).Save(existing).Error
	}

	return s.db.WithContext(ctx).Create(&models.FeedSource{
		Title:         entry.Title,
		Description:   description,
		URL:           entry.URL,
		GamesCount:    entry.GamesCount,
		Status:        status,
		AddedDate:     entry.AddedDate,
		LastFetched:   &now,
		LastGameCount: currentCount,
	}).Error
}

// FetchFeed fetches a URL and parses it as a feed. Used by the single-URL
// admin ingestion endpoint.
func (s *Service) FetchFeed(ctx context.Context, url, fallbackName string) (*Feed, error) {
	body, err := s.fetchBody(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseFeedBody(body, fallbackName)
}

// FetchBody fetches a URL and returns the raw response body.
func (s *Service) FetchBody(ctx context.Context, url string) ([]byte, error) {
	return s.fetchBody(ctx, url)
}

func (s *Service) fetchBody(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
