package engine

import "strings"

// DefaultFilterList is the configurable set of trimmed, lowercased
// transcripts dropped before translation (spec.md §4.4 step 3). Grounded
// verbatim on original_source/translation_engine.py's ignored_phrases.
var DefaultFilterList = map[string]struct{}{
	".":            {},
	"...":          {},
	"?":            {},
	"!":            {},
	"you":          {},
	"thank you":    {},
	"subtitles":    {},
	"watching":     {},
	"video":        {},
	"subscribe":    {},
	"notification": {},
	"copyright":    {},
}

// passesFilter reports whether text should proceed to translation (spec.md
// §4.4 step 3, invariants §8 tests 3/9/10). A dropped utterance yields no
// user-visible output.
func passesFilter(text string, filterList map[string]struct{}) bool {
	if filterList == nil {
		filterList = DefaultFilterList
	}

	if text == "" {
		return false
	}

	clean := strings.ToLower(strings.TrimSpace(text))
	if len(clean) < 2 {
		return false
	}
	if _, ignored := filterList[clean]; ignored {
		return false
	}
	if strings.HasPrefix(clean, "(") {
		return false
	}
	return true
}
