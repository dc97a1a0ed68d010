// Package lang holds the fixed, enumerated table of human language names and
// their resolved ISO-639-1 codes (spec.md §3's LangTag), plus fuzzy
// resolution for slightly-misspelled config values.
package lang

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// Tag pairs a human-readable language name with its ISO-639-1 code.
type Tag struct {
	Name string
	Code string
}

// fuzzyMatchThreshold is the minimum Jaro-Winkler similarity accepted when
// an exact/case-insensitive lookup misses, grounded on MrWong99-glyphoxa's
// phonetic matcher's own fuzzy-fallback threshold.
const fuzzyMatchThreshold = 0.85

// table is the fixed, enumerated mapping spec.md §3 requires (minimum 15
// languages), copied from original_source/translation_engine.py's
// self.lang_map.
var table = []Tag{
	{Name: "English", Code: "en"},
	{Name: "Urdu", Code: "ur"},
	{Name: "Hindi", Code: "hi"},
	{Name: "Spanish", Code: "es"},
	{Name: "Japanese", Code: "ja"},
	{Name: "French", Code: "fr"},
	{Name: "German", Code: "de"},
	{Name: "Chinese", Code: "zh"},
	{Name: "Arabic", Code: "ar"},
	{Name: "Russian", Code: "ru"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Italian", Code: "it"},
	{Name: "Korean", Code: "ko"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Dutch", Code: "nl"},
}

// All returns the full enumerated language table.
func All() []Tag {
	out := make([]Tag, len(table))
	copy(out, table)
	return out
}

// Resolve looks up a Tag by human name, case-insensitively, and falls back to
// fuzzy (Jaro-Winkler) matching against the table when no exact match is
// found — so a config value like "Portugese" still resolves instead of
// silently defaulting.
func Resolve(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, fmt.Errorf("lang: empty language name")
	}

	lower := strings.ToLower(name)
	for _, t := range table {
		if strings.ToLower(t.Name) == lower {
			return t, nil
		}
	}

	best := Tag{}
	bestScore := 0.0
	for _, t := range table {
		score := matchr.JaroWinkler(lower, strings.ToLower(t.Name), false)
		if score > bestScore {
			bestScore = score
			best = t
		}
	}

	if bestScore >= fuzzyMatchThreshold {
		return best, nil
	}

	return Tag{}, fmt.Errorf("lang: unrecognized language %q", name)
}

// ByCode looks up a Tag by its ISO-639-1 code.
func ByCode(code string) (Tag, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, t := range table {
		if t.Code == code {
			return t, nil
		}
	}
	return Tag{}, fmt.Errorf("lang: unrecognized code %q", code)
}
