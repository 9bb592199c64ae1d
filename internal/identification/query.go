package identification

import (
	"regexp"
	"strconv"
	"strings"

	"reelkeeper/internal/media"
)

var (
	bracketedPattern   = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	parenYearPattern   = regexp.MustCompile(`\(((?:19|20)\d{2})\)`)
	querySepPattern    = regexp.MustCompile(`[._]+`)
	queryQualityTokens = regexp.MustCompile(`(?i)\b(2160p|1080p|1080i|720p|576p|480p|4k|uhd|blu-?ray|bdrip|brrip|web-?dl|webrip|hdtv|dvdrip|remux|x26[45]|h ?26[45]|hevc|10bit|proper|repack)\b`)
	coreTitleSplit     = regexp.MustCompile(`\s*(?::|\s-\s)\s*`)
	leadingArticle     = regexp.MustCompile(`(?i)^(the|a|an)\s+`)
	multiSpace         = regexp.MustCompile(`\s+`)
)

// BuildQuery cleans a raw title and returns a validated query. When year is
// zero a parenthesized year in the title is extracted.
func BuildQuery(rawTitle string, year int) (media.NormalizedQuery, error) {
	title := bracketedPattern.ReplaceAllString(rawTitle, " ")
	if m := parenYearPattern.FindStringSubmatchIndex(title); m != nil {
		if year == 0 {
			year, _ = strconv.Atoi(title[m[2]:m[3]])
		}
		title = title[:m[0]] + " " + title[m[1]:]
	}
	title = querySepPattern.ReplaceAllString(title, " ")
	title = queryQualityTokens.ReplaceAllString(title, " ")
	title = multiSpace.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -")
	return media.NewNormalizedQuery(title, year)
}

// coreTitle drops a subtitle after ":" or " - " and a leading article. It
// returns "" when nothing shorter than title remains.
func coreTitle(title string) string {
	core := coreTitleSplit.Split(title, 2)[0]
	core = strings.TrimSpace(leadingArticle.ReplaceAllString(core, ""))
	if core == "" || strings.EqualFold(core, title) {
		return ""
	}
	return core
}
