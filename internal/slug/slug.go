// Package slug builds URL slugs from titles and tag names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	separators = regexp.MustCompile(`[-\s]+`)
)

// MaxAttempts bounds the suffix search in Unique.
const MaxAttempts = 1000

// Make lowercases s, drops punctuation, joins words with single hyphens and
// cuts the result to at most maxLen runes. It returns fallback when nothing
// is left.
func Make(s string, maxLen int, fallback string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = disallowed.ReplaceAllString(out, "")
	out = separators.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")
	if maxLen > 0 {
		if r := []rune(out); len(r) > maxLen {
			out = strings.Trim(string(r[:maxLen]), "-")
		}
	}
	if out == "" {
		return fallback
	}
	return out
}

// Unique returns base, or base-1, base-2 and so on, whichever exists reports
// as free first.
func Unique(base string, exists func(candidate string) (bool, error)) (string, error) {
	candidate := base
	for i := 1; i <= MaxAttempts; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", ErrExhausted
}
