package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeNote(note string) string {
	return TrimAndNormalize(note)
}

// NormalizeFacetValue cleans a type or generation value. Case is preserved:
// "GPU" and "gpu" are distinct facet values on purpose.
func NormalizeFacetValue(value string) string {
	return TrimAndNormalize(value)
}

func NormalizePurpose(purpose string) string {
	return TrimAndNormalize(purpose)
}
