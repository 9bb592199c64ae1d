package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a single path
// segment. Slashes, backslashes, and asterisks become dashes, colons become
// " -", other unsafe characters are removed, and runs of spaces collapse.
// Leading and trailing dots are trimmed so a segment can never be "." or "..".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := fileNameReplacer.Replace(name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.Trim(cleaned, ". ")
}
