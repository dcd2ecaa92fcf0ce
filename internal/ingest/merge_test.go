package ingest

import (
	"testing"
	"time"

	"hivegames/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNormalizeRecordDefensiveDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	r, ok := NormalizeRecord("FitGirl", Download{Title: "Hades", UploadDate: "not-a-date"}, now)
	require.True(t, ok)
	assert.Equal(t, now, r.UploadDate)
}

func TestNormalizeRecordParsesKnownLayouts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	r, _ := NormalizeRecord("FitGirl", Download{Title: "Hades", UploadDate: "2024-03-15T10:30:00Z"}, now)
	assert.Equal(t, 2024, r.UploadDate.Year())

	r, _ = NormalizeRecord("FitGirl", Download{Title: "Hades", UploadDate: "2024-03-15"}, now)
	assert.Equal(t, time.March, r.UploadDate.Month())
}

func TestNormalizeRecordDefaults(t *testing.T) {
	now := time.Now()

	_, ok := NormalizeRecord("FitGirl", Download{}, now)
	assert.False(t, ok, "record without title is dropped")

	r, ok := NormalizeRecord("FitGirl", Download{Title: "Hades"}, now)
	require.True(t, ok)
	assert.Equal(t, "Unknown", r.FileSize)
}

func existingEntry(id uint, title string, sources ...models.Source) models.GameTorrent {
	return models.GameTorrent{
		Model:   gorm.Model{ID: id},
		Title:   title,
		Sources: sources,
	}
}

func TestPlanMergeCreateAppendReplace(t *testing.T) {
	existing := []models.GameTorrent{
		existingEntry(1, "Hades", models.Source{Model: gorm.Model{ID: 10}, Name: "DODI", GameTorrentID: 1}),
	}

	records := []Record{
		{Title: "Hades", SourceName: "DODI"},    // same pair: replace in place
		{Title: "Hades", SourceName: "FitGirl"}, // new source: append
		{Title: "Stray", SourceName: "DODI"},    // unknown title: create
	}

	actions := PlanMerge(existing, records)
	require.Len(t, actions, 3)

	assert.Equal(t, ReplaceSource, actions[0].Kind)
	assert.Equal(t, uint(1), actions[0].EntryID)
	assert.Equal(t, uint(10), actions[0].SourceID)

	assert.Equal(t, AppendSource, actions[1].Kind)
	assert.Equal(t, uint(1), actions[1].EntryID)

	assert.Equal(t, CreateEntry, actions[2].Kind)
	assert.Zero(t, actions[2].EntryID)
}

func TestPlanMergeInBatchDuplicate(t *testing.T) {
	records := []Record{
		{Title: "Stray", SourceName: "DODI"},
		{Title: "Stray", SourceName: "DODI"}, // repeat within the batch
		{Title: "Stray", SourceName: "FitGirl"},
	}

	actions := PlanMerge(nil, records)
	require.Len(t, actions, 3)
	assert.Equal(t, CreateEntry, actions[0].Kind)
	assert.Equal(t, ReplaceSource, actions[1].Kind)
	assert.Equal(t, AppendSource, actions[2].Kind)
}

func TestPlanMergeIdempotentShape(t *testing.T) {
	// A second run over the same feed must only yield replacements.
	existing := []models.GameTorrent{
		existingEntry(1, "Hades", models.Source{Model: gorm.Model{ID: 10}, Name: "DODI", GameTorrentID: 1}),
		existingEntry(2, "Stray", models.Source{Model: gorm.Model{ID: 11}, Name: "DODI", GameTorrentID: 2}),
	}

	records := []Record{
		{Title: "Hades", SourceName: "DODI"},
		{Title: "Stray", SourceName: "DODI"},
	}

	for _, a := range PlanMerge(existing, records) {
		assert.Equal(t, ReplaceSource, a.Kind)
	}
}
