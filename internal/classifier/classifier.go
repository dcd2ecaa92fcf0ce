// Package classifier assigns genre tags (and optionally a cleaned title and
// version) to raw release titles. Two interchangeable strategies exist: a
// local keyword table and a batched Gemini call. Classification never fails
// ingestion; any error degrades to the default genre tag.
package classifier

import "context"

// DefaultGenre is assigned when no strategy produces a genre for a title.
const DefaultGenre = "Game"

// Result is the classification outcome for one raw title.
type Result struct {
	Genres     []string
	CleanTitle string
	Version    string
}

// Classifier maps raw titles to classification results. Implementations must
// return an entry for every requested title and must not fail the batch:
// errors degrade to the default genre instead.
type Classifier interface {
	Classify(ctx context.Context, rawTitles []string) map[string]Result
}

// New selects the strategy by credential availability: the Gemini batch
// classifier when an API key is configured, the keyword table otherwise.
func New(geminiAPIKey string) Classifier {
	if geminiAPIKey != "" {
		return NewGemini(geminiAPIKey)
	}
	return NewKeyword()
}
