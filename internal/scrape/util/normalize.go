package util

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Fold returns the comparison form of s: NFKC, Unicode case folding and
// collapsed whitespace. A cases.Caser is stateful so one is built per call.
func Fold(s string) string {
	return CleanText(cases.Fold().String(norm.NFKC.String(s)))
}

// ContainsAny reports whether folded text contains any of the folded terms.
func ContainsAny(folded string, terms []string) bool {
	for _, t := range terms {
		if t = Fold(t); t != "" && strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	loc = strings.TrimPrefix(loc, "Location:")
	loc = strings.TrimSpace(loc)

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
