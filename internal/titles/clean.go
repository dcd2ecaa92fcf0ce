// Package titles cleans raw release titles for display and grouping.
//
// Raw feed titles carry bracketed language tags, repack-tool markers, DLC
// annotations, file-size parentheticals and version/build numbers. Cleaning is
// a best-effort string transform, not a grammar; un-stripped junk is expected
// for patterns outside the known set.
package titles

import (
	"regexp"
	"strings"
)

var (
	// Versions and builds in parens: (v1.0.1), (#12345), (Build 123)
	reParenVersion = regexp.MustCompile(`(?i)\s*\([v#]?[\d.\-#][^)]*\)`)

	// Language tags: (MULTi17), (RUS/ENG), (Multi-language)
	reLanguage = regexp.MustCompile(`(?i)\s*\((MULTi?\d*|RUS|ENG|Multi[-\s]?language?|Language\s*Pack)[^)]*\)`)

	// DLC and content tags: (All DLCs), (+ DLC), (Bonus Content)
	reDLC      = regexp.MustCompile(`(?i)\s*\([^)]*DLC[^)]*\)`)
	reGraphics = regexp.MustCompile(`(?i)\s*\([^)]*Enhanced Graphics Pack[^)]*\)`)
	reBonus    = regexp.MustCompile(`(?i)\s*\([^)]*Bonus Content[^)]*\)`)

	// File sizes: (From 10.4 GB), (7.9 GB)
	reSizeFrom = regexp.MustCompile(`(?i)\s*\([Ff]rom\s+[\d.]+ [KMGT]B\)`)
	reSize     = regexp.MustCompile(`(?i)\s*\([\d.]+ [KMGT]B\)`)

	// Repack markers: [DODI Repack], [FitGirl Repack], [Repack]
	reRepack = regexp.MustCompile(`(?i)\s*\[[^\]]*Repack[^\]]*\]`)

	// Trailing punctuation left behind by the strips
	reTrailingJunk = regexp.MustCompile(`\s*[-\s]+$`)

	// Bare trailing version tokens: "Build 10092024", "v1.0.3", "1.0.2"
	reTrailingVersion = regexp.MustCompile(`(?i)\s+(Build\s+\d+|v[\d][\w.\-]*|\d+(?:\.\d+)+)$`)

	// A parenthesized token worth keeping as the version: starts with v/# or a
	// digit, is not a file size
	reVersionToken = regexp.MustCompile(`(?i)^[v#]?[\d][\w.\-#]*$`)
)

// Clean strips known annotation patterns from a raw release title and returns
// the cleaned display title together with any version or build token detected
// along the way. The version is empty when nothing version-like was found.
func Clean(raw string) (clean, version string) {
	clean = raw

	if m := reParenVersion.FindString(clean); m != "" {
		version = parenVersionToken(m)
	}

	clean = reParenVersion.ReplaceAllString(clean, "")
	clean = reLanguage.ReplaceAllString(clean, "")
	clean = reDLC.ReplaceAllString(clean, "")
	clean = reGraphics.ReplaceAllString(clean, "")
	clean = reBonus.ReplaceAllString(clean, "")
	clean = reSizeFrom.ReplaceAllString(clean, "")
	clean = reSize.ReplaceAllString(clean, "")
	clean = reRepack.ReplaceAllString(clean, "")

	if m := reTrailingVersion.FindStringSubmatch(clean); m != nil {
		if version == "" {
			version = m[1]
		}
		clean = strings.TrimSuffix(clean, m[0])
	}

	clean = reTrailingJunk.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	return clean, version
}

// parenVersionToken extracts a usable version string from a stripped
// parenthetical like "(v1.0.1 + All DLCs)". File sizes and other
// digit-leading noise are not versions.
func parenVersionToken(m string) string {
	inner := strings.TrimSpace(m)
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")
	if i := strings.IndexAny(inner, "+,"); i >= 0 {
		inner = inner[:i]
	}
	inner = strings.TrimSpace(inner)

	if reVersionToken.MatchString(inner) {
		return inner
	}
	return ""
}
