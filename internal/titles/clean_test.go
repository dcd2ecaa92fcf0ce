package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantClean   string
		wantVersion string
	}{
		{
			name:      "language tag and repack marker",
			raw:       "Captain Blood (MULTi17) [DODI Repack]",
			wantClean: "Captain Blood",
		},
		{
			name:        "trailing build token",
			raw:         "Satisfactory Build 10092024",
			wantClean:   "Satisfactory",
			wantVersion: "Build 10092024",
		},
		{
			name:        "trailing dotted version",
			raw:         "Ale & Tale Tavern 1.0.2",
			wantClean:   "Ale & Tale Tavern",
			wantVersion: "1.0.2",
		},
		{
			name:        "paren version with dlc and language noise",
			raw:         "Age of Empires II: Definitive Edition (v101.103.12349.0 + All DLCs + MULTi17)",
			wantClean:   "Age of Empires II: Definitive Edition",
			wantVersion: "v101.103.12349.0",
		},
		{
			name:      "file size parenthetical",
			raw:       "Elden Ring (From 44.7 GB)",
			wantClean: "Elden Ring",
		},
		{
			name:      "plain size parenthetical",
			raw:       "Stray (7.9 GB)",
			wantClean: "Stray",
		},
		{
			name:      "fitgirl repack bracket",
			raw:       "Hogwarts Legacy [FitGirl Repack]",
			wantClean: "Hogwarts Legacy",
		},
		{
			name:      "trailing dash left by strip",
			raw:       "Cyberpunk 2077 - (Bonus Content)",
			wantClean: "Cyberpunk 2077",
		},
		{
			name:      "no annotations",
			raw:       "Hades",
			wantClean: "Hades",
		},
		{
			name:      "unknown junk survives",
			raw:       "Doom {weird tag}",
			wantClean: "Doom {weird tag}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, version := Clean(tt.raw)
			assert.Equal(t, tt.wantClean, clean)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}
