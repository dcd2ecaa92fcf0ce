package ingest

import (
	"time"

	"hivegames/backend/internal/models"
)

// Record is one normalized incoming feed item, ready to merge.
type Record struct {
	Title      string
	SourceName string
	URIs       []string
	UploadDate time.Time
	FileSize   string
	Genres     []string
}

// uploadDateLayouts are tried in order when parsing a feed's upload date.
var uploadDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
}

// NormalizeRecord converts a feed download into a Record. Records without a
// title are dropped (ok == false). Date parsing is defensive: an unparseable
// upload date falls back to now rather than failing the record. A missing
// file size becomes the "Unknown" sentinel.
func NormalizeRecord(sourceName string, d Download, now time.Time) (Record, bool) {
	if d.Title == "" {
		return Record{}, false
	}

	uploadDate := now
	if d.UploadDate != "" {
		for _, layout := range uploadDateLayouts {
			if parsed, err := time.Parse(layout, d.UploadDate); err == nil {
				uploadDate = parsed
				break
			}
		}
	}

	fileSize := d.FileSize
	if fileSize == "" {
		fileSize = "Unknown"
	}

	return Record{
		Title:      d.Title,
		SourceName: sourceName,
		URIs:       d.URIs,
		UploadDate: uploadDate,
		FileSize:   fileSize,
		Genres:     d.Genres,
	}, true
}

// ActionKind says what a merge action does to the catalog.
type ActionKind int

const (
	// CreateEntry creates a new catalog entry with the record as sole source.
	CreateEntry ActionKind = iota
	// AppendSource adds the record as a new source on an existing entry.
	AppendSource
	// ReplaceSource overwrites the entry's source of the same name in place.
	ReplaceSource
)

// Action is one planned merge step. EntryID and SourceID are zero when the
// target was created earlier in the same batch; appliers then resolve by
// Record.Title and Record.SourceName.
type Action struct {
	Kind     ActionKind
	Record   Record
	EntryID  uint
	SourceID uint
}

// PlanMerge decides, per record, whether it creates a new entry, appends a
// source to an existing entry, or replaces that entry's source of the same
// name. The contract is a keyed map: title -> entry, and within an entry,
// source name -> source. Records repeating a (title, source) pair within the
// batch replace rather than duplicate.
func PlanMerge(existing []models.GameTorrent, records []Record) []Action {
	byTitle := make(map[string]*models.GameTorrent, len(existing))
	for i := range existing {
		byTitle[existing[i].Title] = &existing[i]
	}

	// (title, source name) pairs introduced earlier in this batch
	pending := make(map[string]map[string]bool)

	actions := make([]Action, 0, len(records))
	for _, r := range records {
		entry, known := byTitle[r.Title]
		batchSources, inBatch := pending[r.Title]

		switch {
		case !known && !inBatch:
			actions = append(actions, Action{Kind: CreateEntry, Record: r})
			pending[r.Title] = map[string]bool{r.SourceName: true}

		case !known: // created earlier in this batch
			if batchSources[r.SourceName] {
				actions = append(actions, Action{Kind: ReplaceSource, Record: r})
			} else {
				actions = append(actions, Action{Kind: AppendSource, Record: r})
				batchSources[r.SourceName] = true
			}

		default:
			var sourceID uint
			for _, s := range entry.Sources {
				if s.Name == r.SourceName {
					sourceID = s.ID
					break
				}
			}
			if sourceID != 0 || (inBatch && batchSources[r.SourceName]) {
				actions = append(actions, Action{Kind: ReplaceSource, Record: r, EntryID: entry.ID, SourceID: sourceID})
			} else {
				actions = append(actions, Action{Kind: AppendSource, Record: r, EntryID: entry.ID})
				if batchSources == nil {
					batchSources = make(map[string]bool)
					pending[r.Title] = batchSources
				}
				batchSources[r.SourceName] = true
			}
		}
	}

	return actions
}
