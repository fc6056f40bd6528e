// Package tags canonicalizes user-supplied book tags.
package tags

import (
	"strings"
	"unicode"
)

// Slug lowercases s and joins its alphanumeric runs with single dashes:
// "Slow Burn", "slow_burn" and "SLOW--BURN" all become "slow-burn". Other
// characters are dropped, so "Dragons!" becomes "dragons".
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '/' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}

// Normalize slugs every tag, dropping empties and repeats. Order is kept.
func Normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		slug := Slug(t)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}
