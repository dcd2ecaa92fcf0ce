package catalog

import (
	"sort"

	"hivegames/backend/internal/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// rawTitlePenalty biases ranking toward cleaned titles: a raw-title match
// must beat a clean-title match by this much distance to win.
const rawTitlePenalty = 2

// SearchEntries ranks entries against the query with fuzzy matching over the
// cleaned and raw titles, cleaned title weighted higher, and returns the top
// `limit` matches. Queries shorter than two characters match nothing.
func SearchEntries(entries []models.GameTorrent, query string, limit int) []models.GameTorrent {
	if len(query) < 2 {
		return nil
	}

	type scored struct {
		entry models.GameTorrent
		rank  int
	}

	var matches []scored
	for _, e := range entries {
		rank := -1

		if e.CleanTitle != "" {
			rank = fuzzy.RankMatchNormalizedFold(query, e.CleanTitle)
		}
		if rawRank := fuzzy.RankMatchNormalizedFold(query, e.Title); rawRank >= 0 {
			weighted := rawRank + rawTitlePenalty
			if rank < 0 || weighted < rank {
				rank = weighted
			}
		}

		if rank >= 0 {
			matches = append(matches, scored{entry: e, rank: rank})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].rank < matches[j].rank
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]models.GameTorrent, len(matches))
	for i, m := range matches {
		results[i] = m.entry
	}
	return results
}
