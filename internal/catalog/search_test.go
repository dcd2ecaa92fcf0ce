package catalog

import (
	"testing"

	"hivegames/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEntriesPrefersCleanTitle(t *testing.T) {
	entries := []models.GameTorrent{
		{Title: "Witcher-like Roguelite Pack", CleanTitle: ""},
		{Title: "The Witcher 3 (MULTi17) [DODI Repack]", CleanTitle: "The Witcher 3"},
	}

	results := SearchEntries(entries, "witcher", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "The Witcher 3", results[0].CleanTitle)
}

func TestSearchEntriesShortQuery(t *testing.T) {
	entries := []models.GameTorrent{{Title: "Hades"}}
	assert.Empty(t, SearchEntries(entries, "h", 10))
}

func TestSearchEntriesLimit(t *testing.T) {
	entries := []models.GameTorrent{
		{Title: "Portal"},
		{Title: "Portal 2"},
		{Title: "Portal Stories"},
	}

	results := SearchEntries(entries, "portal", 2)
	assert.Len(t, results, 2)
}

func TestSearchEntriesNoMatch(t *testing.T) {
	entries := []models.GameTorrent{{Title: "Hades"}}
	assert.Empty(t, SearchEntries(entries, "zzzz", 10))
}
