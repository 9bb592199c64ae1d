package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTitleLength bounds normalized keys so pathological names cannot
// blow up bucket maps.
const DefaultMaxTitleLength = 256

// NormalizeTitle lowercases text, folds diacritics, strips punctuation, and
// collapses whitespace. The result is truncated to maxLen runes when maxLen > 0.
func NormalizeTitle(text string, maxLen int) string {
	folded := foldDiacritics(text)
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			space = false
		case r == '\'' || r == '’':
			// apostrophes join contractions: "Grey's" -> "greys"
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if rs := []rune(out); len(rs) > maxLen {
			out = strings.TrimSpace(string(rs[:maxLen]))
		}
	}
	return out
}

// Tokens splits the normalized form of text into words.
func Tokens(text string) []string {
	normalized := NormalizeTitle(text, 0)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

func foldDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
