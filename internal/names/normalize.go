// Package names canonicalizes school names so that roster entries, feed team
// names and standings rows can be matched with plain map lookups.
package names

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	whitespace    = regexp.MustCompile(`\s+`)
	stateWord     = regexp.MustCompile(`(?i)\bstate\b`)
	univAbbrev    = regexp.MustCompile(`(?i)\buniv\.`)
)

// qualified lists schools whose parenthetical is the only thing telling them
// apart from another school. Keys are lower-case with whitespace collapsed.
// The unqualified spelling keeps the plain key ("Miami (FL)" stays "miami").
var qualified = map[string]string{
	"miami (oh)":   "miami oh",
	"miami (ohio)": "miami oh",
	"loyola (md)":  "loyola maryland",
	"loyola (il)":  "loyola chicago",
}

// Normalize returns the matching key for a school name.
//
// Parenthetical qualifiers are dropped ("Saint Mary's (CA)" -> "saint mary's")
// except for the few schools in qualified, which keep a distinct key. Whitespace is collapsed, "State" is always spelled "St." and "Univ." is
// always spelled "University". The result is lower-case. Normalize is pure and
// idempotent; an empty input yields an empty key.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
	if key, ok := qualified[strings.ToLower(s)]; ok {
		return key
	}

	s = parenthetical.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = stateWord.ReplaceAllString(s, "St.")
	s = univAbbrev.ReplaceAllString(s, "University")

	return strings.ToLower(s)
}

// Index maps normalized keys to the original labels they were built from.
// The first label wins when two labels normalize to the same key.
func Index(labels []string) map[string]string {
	idx := make(map[string]string, len(labels))
	for _, label := range labels {
		key := Normalize(label)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = label
		}
	}
	return idx
}
