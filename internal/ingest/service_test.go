package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"hivegames/backend/internal/classifier"
	"hivegames/backend/internal/database"
	"hivegames/backend/internal/models"
	"hivegames/backend/internal/titles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeClassifier runs the local normalizer and tags everything "Indie".
type fakeClassifier struct {
	calls [][]string
}

func (f *fakeClassifier) Classify(_ context.Context, rawTitles []string) map[string]classifier.Result {
	f.calls = append(f.calls, rawTitles)

	out := make(map[string]classifier.Result, len(rawTitles))
	for _, raw := range rawTitles {
		clean, version := titles.Clean(raw)
		out[raw] = classifier.Result{
			Genres:     []string{"Indie"},
			CleanTitle: clean,
			Version:    version,
		}
	}
	return out
}

func testService(t *testing.T) (*Service, *gorm.DB, *fakeClassifier) {
	t.Helper()

	db := testDB(t)
	cls := &fakeClassifier{}
	svc := NewService(db, cls)
	svc.chunkPause = time.Millisecond
	return svc, db, cls
}

func TestUpsertFeedIdempotent(t *testing.T) {
	svc, db, _ := testService(t)

	feed := &Feed{
		Name: "FitGirl",
		Downloads: []Download{
			{Title: "Hades", URIs: []string{"magnet:a"}},
			{Title: "Stray", URIs: []string{"magnet:b"}},
		},
	}

	first, err := svc.UpsertFeed(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := svc.UpsertFeed(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.SourcesReplaced)

	var entries []models.GameTorrent
	require.NoError(t, db.Preload("Sources").Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Len(t, e.Sources, 1, "re-ingesting must replace, not duplicate")
	}
}

func TestUpsertFeedAppendsSecondSource(t *testing.T) {
	svc, db, _ := testService(t)

	_, err := svc.UpsertFeed(context.Background(), &Feed{
		Name:      "FitGirl",
		Downloads: []Download{{Title: "Hades", URIs: []string{"magnet:a"}}},
	})
	require.NoError(t, err)

	_, err = svc.UpsertFeed(context.Background(), &Feed{
		Name:      "DODI",
		Downloads: []Download{{Title: "Hades", URIs: []string{"magnet:b"}}},
	})
	require.NoError(t, err)

	var entry models.GameTorrent
	require.NoError(t, db.Preload("Sources").Where("title = ?", "Hades").First(&entry).Error)
	require.Len(t, entry.Sources, 2)

	names := []string{entry.Sources[0].Name, entry.Sources[1].Name}
	assert.ElementsMatch(t, []string{"FitGirl", "DODI"}, names)
}

func TestUpsertFeedGenresFromFeedWinOverClassifier(t *testing.T) {
	svc, db, cls := testService(t)

	_, err := svc.UpsertFeed(context.Background(), &Feed{
		Name:      "FitGirl",
		Downloads: []Download{{Title: "Hades", Genres: []string{"Roguelike"}}},
	})
	require.NoError(t, err)

	var entry models.GameTorrent
	require.NoError(t, db.Where("title = ?", "Hades").First(&entry).Error)
	assert.Equal(t, []string{"Roguelike"}, entry.Genres)

	// classifier still ran for the cleaned title
	require.Len(t, cls.calls, 1)
	assert.Equal(t, "Hades", entry.CleanTitle)
}

func TestUpsertFeedClassifierGenresAndVersion(t *testing.T) {
	svc, db, _ := testService(t)

	_, err := svc.UpsertFeed(context.Background(), &Feed{
		Name:      "DODI",
		Downloads: []Download{{Title: "Satisfactory Build 10092024"}},
	})
	require.NoError(t, err)

	var entry models.GameTorrent
	require.NoError(t, db.Where("title = ?", "Satisfactory Build 10092024").First(&entry).Error)
	assert.Equal(t, []string{"Indie"}, entry.Genres)
	assert.Equal(t, "Satisfactory", entry.CleanTitle)
	assert.Equal(t, "Build 10092024", entry.Version)
}

func TestUpsertFeedDefensiveDateAndFileSize(t *testing.T) {
	svc, db, _ := testService(t)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.UpsertFeed(context.Background(), &Feed{
		Name:      "FitGirl",
		Downloads: []Download{{Title: "Hades", UploadDate: "not-a-date"}},
	})
	require.NoError(t, err)

	var src models.Source
	require.NoError(t, db.First(&src).Error)
	assert.True(t, src.UploadDate.Equal(fixed), "unparseable date falls back to ingestion time")
	assert.Equal(t, "Unknown", src.FileSize)
}

func TestUpsertFeedSkipsUntitledRecords(t *testing.T) {
	svc, db, _ := testService(t)

	stats, err := svc.UpsertFeed(context.Background(), &Feed{
		Name:      "FitGirl",
		Downloads: []Download{{Title: ""}, {Title: "Hades"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	var count int64
	db.Model(&models.GameTorrent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
