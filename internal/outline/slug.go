package outline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name, folds accents, collapses every run of
// characters outside [a-z0-9] into one underscore and trims underscores
// from both ends. "Part One!" becomes "part_one".
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	s := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "_")
	return strings.Trim(s, "_")
}

// DisplayName is the canonical display form of a section id.
func DisplayName(id string) string {
	return strings.ToUpper(id)
}
