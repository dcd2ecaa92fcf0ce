// Package catalog presents the stored entries as title-groups: the set of
// catalog rows sharing one cleaned display title, treated as a single logical
// game across its release sources. Grouping, filtering and pagination are
// plain functions over fetched rows so the contract is testable without a
// storage engine.
package catalog

import (
	"sort"
	"time"

	"hivegames/backend/internal/models"
)

// Group is one logical game aggregated across same-clean-title entries.
type Group struct {
	Key        string        `json:"id"`
	Title      string        `json:"title"`
	CleanTitle string        `json:"cleanTitle,omitempty"`
	Version    string        `json:"version,omitempty"`
	Genres     []string      `json:"genres"`
	Likes      int           `json:"likes"`
	LikedBy    []uint        `json:"likedBy"`
	IsLiked    bool          `json:"isLiked"`
	Sources    []GroupSource `json:"sources"`
	EntryIDs   []uint        `json:"entryIds"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// GroupSource is a source annotated with the raw title and version of the
// entry it came from, since variants inside a group may differ in both.
type GroupSource struct {
	Name          string    `json:"name"`
	URIs          []string  `json:"uris"`
	UploadDate    time.Time `json:"uploadDate"`
	FileSize      string    `json:"fileSize"`
	GameVersion   string    `json:"gameVersion,omitempty"`
	OriginalTitle string    `json:"originalTitle"`
}

// GroupKey is the grouping key for an entry: the cleaned title when present,
// the raw title otherwise.
func GroupKey(t models.GameTorrent) string {
	if t.CleanTitle != "" {
		return t.CleanTitle
	}
	return t.Title
}

// Filter is the pre-group match predicate for browsing.
type Filter struct {
	Sources []string
	Genres  []string
}

// Matches reports whether an entry passes the filter. Empty filter fields
// match everything.
func (f Filter) Matches(t models.GameTorrent) bool {
	if len(f.Sources) > 0 {
		found := false
		for _, s := range t.Sources {
			if containsString(f.Sources, s.Name) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Genres) > 0 {
		found := false
		for _, g := range t.Genres {
			if containsString(f.Genres, g) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// GroupEntries aggregates entries into title-groups: summed likes, union of
// liking users, concatenated source lists, and the widest timestamp span.
// Genres and version come from the group's first entry. Groups are sorted
// most recently updated first.
func GroupEntries(entries []models.GameTorrent) []Group {
	byKey := make(map[string]*Group)
	var order []string

	for _, e := range entries {
		key := GroupKey(e)

		g, ok := byKey[key]
		if !ok {
			g = &Group{
				Key:        key,
				Title:      e.Title,
				CleanTitle: e.CleanTitle,
				Version:    e.Version,
				Genres:     e.Genres,
				CreatedAt:  e.CreatedAt,
				UpdatedAt:  e.UpdatedAt,
			}
			byKey[key] = g
			order = append(order, key)
		}

		g.Likes += e.Likes
		g.EntryIDs = append(g.EntryIDs, e.ID)

		for _, u := range e.LikedBy {
			if u != nil && !containsUint(g.LikedBy, u.ID) {
				g.LikedBy = append(g.LikedBy, u.ID)
			}
		}

		for _, s := range e.Sources {
			g.Sources = append(g.Sources, GroupSource{
				Name:          s.Name,
				URIs:          s.URIs,
				UploadDate:    s.UploadDate,
				FileSize:      s.FileSize,
				GameVersion:   e.Version,
				OriginalTitle: e.Title,
			})
		}

		if e.CreatedAt.Before(g.CreatedAt) {
			g.CreatedAt = e.CreatedAt
		}
		if e.UpdatedAt.After(g.UpdatedAt) {
			g.UpdatedAt = e.UpdatedAt
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].UpdatedAt.After(groups[j].UpdatedAt)
	})

	return groups
}

// PruneSources reduces each group's source list to the named sources. Used
// when browsing is filtered by source, so the filter narrows the fan-out
// within a group, not just which groups qualify.
func PruneSources(groups []Group, sources []string) []Group {
	if len(sources) == 0 {
		return groups
	}

	pruned := make([]Group, len(groups))
	for i, g := range groups {
		kept := make([]GroupSource, 0, len(g.Sources))
		for _, s := range g.Sources {
			if containsString(sources, s.Name) {
				kept = append(kept, s)
			}
		}
		g.Sources = kept
		pruned[i] = g
	}
	return pruned
}

// Paginate slices the grouped results. Pagination operates over groups, not
// raw rows. Returns the page and the total group count.
func Paginate(groups []Group, page, limit int) ([]Group, int64) {
	total := int64(len(groups))

	start := (page - 1) * limit
	if start >= len(groups) {
		return []Group{}, total
	}
	end := start + limit
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end], total
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsUint(haystack []uint, needle uint) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
