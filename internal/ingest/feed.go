// Package ingest turns external JSON feeds into catalog entries: it parses
// the known feed shapes, plans the merge against the existing catalog keyed
// by title, and applies the plan through the database.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrUnrecognizedSchema is returned when a fetched body matches none of the
// known feed shapes.
var ErrUnrecognizedSchema = errors.New("unrecognized feed schema")

// Download is one release entry of a feed.
type Download struct {
	Title      string   `json:"title"`
	URIs       []string `json:"uris"`
	UploadDate string   `json:"uploadDate,omitempty"`
	FileSize   string   `json:"fileSize,omitempty"`
	Genres     []string `json:"genres,omitempty"`
}

// Feed is a normalized external feed: a source name and its releases.
type Feed struct {
	Name      string     `json:"name"`
	Downloads []Download `json:"downloads"`
}

// ParseFeedBody parses a fetched body as one of the known feed shapes, in
// order: an object with a downloads array, an object with a games array, or a
// bare array of downloads. fallbackName is used when the body carries no
// source name of its own. Anything else is ErrUnrecognizedSchema.
func ParseFeedBody(body []byte, fallbackName string) (*Feed, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedSchema
	}

	if trimmed[0] == '[' {
		var downloads []Download
		if err := json.Unmarshal(trimmed, &downloads); err != nil {
			return nil, ErrUnrecognizedSchema
		}
		return &Feed{Name: fallbackName, Downloads: downloads}, nil
	}

	var probe struct {
		Name      string     `json:"name"`
		Downloads []Download `json:"downloads"`
		Games     []Download `json:"games"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, ErrUnrecognizedSchema
	}

	name := probe.Name
	if name == "" {
		name = fallbackName
	}

	switch {
	case probe.Downloads != nil:
		return &Feed{Name: name, Downloads: probe.Downloads}, nil
	case probe.Games != nil:
		return &Feed{Name: name, Downloads: probe.Games}, nil
	}

	return nil, ErrUnrecognizedSchema
}
