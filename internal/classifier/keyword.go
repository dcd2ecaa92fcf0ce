package classifier

import (
	"context"
	"strings"

	"hivegames/backend/internal/titles"
)

// genreKeywords maps a genre to lowercase substrings that signal it. A title
// may match several genres.
var genreKeywords = map[string][]string{
	"Action":     {"doom", "devil may cry", "god of war", "action"},
	"Adventure":  {"tomb raider", "uncharted", "adventure", "zelda"},
	"RPG":        {"rpg", "elden ring", "witcher", "fallout", "elder scrolls", "baldur"},
	"Strategy":   {"age of empires", "civilization", "total war", "tactics", "strategy"},
	"Simulation": {"simulator", "tycoon", "farming", "truck", "flight sim"},
	"Racing":     {"racing", "forza", "need for speed", "rally", "drift"},
	"Sports":     {"fifa", "nba", "football", "soccer", "tennis", "golf", "skate"},
	"Puzzle":     {"puzzle", "portal", "tetris", "talos"},
	"Horror":     {"resident evil", "silent hill", "horror", "outlast", "amnesia"},
	"Platformer": {"mario", "sonic", "platformer", "rayman", "hollow knight"},
	"Survival":   {"survival", "the forest", "raft", "subnautica", "don't starve"},
	"Sandbox":    {"minecraft", "terraria", "sandbox", "garry's mod"},
	"Shooter":    {"call of duty", "battlefield", "counter-strike", "shooter", "sniper"},
	"Fighting":   {"mortal kombat", "street fighter", "tekken", "fighting"},
}

// Keyword classifies titles with a fixed substring table. It also runs the
// local title normalizer so grouping works without the AI strategy.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

func (k *Keyword) Classify(_ context.Context, rawTitles []string) map[string]Result {
	results := make(map[string]Result, len(rawTitles))

	for _, raw := range rawTitles {
		lower := strings.ToLower(raw)

		var genres []string
		for genre, keywords := range genreKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					genres = append(genres, genre)
					break
				}
			}
		}
		if len(genres) == 0 {
			genres = []string{DefaultGenre}
		}

		clean, version := titles.Clean(raw)
		results[raw] = Result{
			Genres:     genres,
			CleanTitle: clean,
			Version:    version,
		}
	}

	return results
}
