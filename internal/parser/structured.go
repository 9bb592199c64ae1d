package parser

import (
	"regexp"
	"strconv"
	"strings"

	"reelkeeper/internal/media"
)

var (
	leadingGroupPattern = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*`)
	bracketPattern      = regexp.MustCompile(`\[[^\]]*\]`)
	separatorPattern    = regexp.MustCompile(`[._]+`)
	spacePattern        = regexp.MustCompile(`\s+`)

	seasonEpisodePattern = regexp.MustCompile(`(?i)\bS(\d{1,2})[ ]?E(\d{1,3})(?:[ -]?E(\d{1,3}))?\b`)
	crossPattern         = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	verbosePattern       = regexp.MustCompile(`(?i)\bSeason\s*(\d{1,2})\s*Episode\s*(\d{1,3})\b`)
	dashEpisodePattern   = regexp.MustCompile(`\s-\s(\d{1,4})(?:v\d)?(?:\s|$)`)
	seasonOnlyPattern    = regexp.MustCompile(`(?i)\b(?:S|Season\s*)(\d{1,2})\b`)
	parenYearPattern     = regexp.MustCompile(`[(\[]((?:19|20)\d{2})[)\]]`)
	yearPattern          = regexp.MustCompile(`(?:^|[\s(\[])((?:19|20)\d{2})(?:[\s)\]]|$)`)

	qualityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(2160p|1080p|1080i|720p|576p|480p|4k|uhd)\b`),
		regexp.MustCompile(`(?i)\b(blu-?ray|bdrip|brrip|web-?dl|webrip|hdtv|dvdrip|remux)\b`),
		regexp.MustCompile(`(?i)\b(x26[45]|h ?26[45]|hevc|avc|10bit)\b`),
	}
)

// Additive confidence evidence for the structured parser.
const (
	evidenceTitle   = 0.4
	evidenceEpisode = 0.3
	evidenceSeason  = 0.2
	evidenceQuality = 0.1
	evidenceYear    = 0.1
)

// Structured tokenizes the basename and recognises release conventions.
type Structured struct{}

func NewStructured() *Structured { return &Structured{} }

func (*Structured) Name() string { return "structured" }

// Parse extracts metadata from path's basename. The title is everything before
// the first metadata token.
func (*Structured) Parse(path string) (media.Metadata, error) {
	raw := stem(path)
	meta := media.Metadata{Parser: "structured"}

	if m := leadingGroupPattern.FindStringSubmatch(raw); m != nil {
		meta.Group = strings.TrimSpace(m[1])
		raw = raw[len(m[0]):]
	}
	text := separatorPattern.ReplaceAllString(raw, " ")
	cut := len(text)
	markCut := func(idx int) {
		if idx >= 0 && idx < cut {
			cut = idx
		}
	}
	if loc := bracketPattern.FindStringIndex(text); loc != nil {
		markCut(loc[0])
	}

	switch {
	case seasonEpisodePattern.MatchString(text):
		loc := seasonEpisodePattern.FindStringSubmatchIndex(text)
		m := seasonEpisodePattern.FindStringSubmatch(text)
		meta.Season = atoi(m[1])
		meta.Episode = atoi(m[2])
		if m[3] != "" {
			meta.EpisodeEnd = atoi(m[3])
		}
		markCut(loc[0])
	case verbosePattern.MatchString(text):
		loc := verbosePattern.FindStringSubmatchIndex(text)
		m := verbosePattern.FindStringSubmatch(text)
		meta.Season = atoi(m[1])
		meta.Episode = atoi(m[2])
		markCut(loc[0])
	case crossPattern.MatchString(text):
		loc := crossPattern.FindStringSubmatchIndex(text)
		m := crossPattern.FindStringSubmatch(text)
		meta.Season = atoi(m[1])
		meta.Episode = atoi(m[2])
		markCut(loc[0])
	case dashEpisodePattern.MatchString(text):
		loc := dashEpisodePattern.FindStringSubmatchIndex(text)
		m := dashEpisodePattern.FindStringSubmatch(text)
		if n := atoi(m[1]); !isYear(n) {
			meta.Episode = n
			markCut(loc[0])
		}
	}
	if meta.Season == 0 {
		if loc := seasonOnlyPattern.FindStringSubmatchIndex(text); loc != nil {
			meta.Season = atoi(text[loc[2]:loc[3]])
			markCut(loc[0])
		}
	}

	// A parenthesized year wins; otherwise the last bare year not at the start,
	// since a leading year is part of the title ("1917", "2001 A Space Odyssey").
	if loc := parenYearPattern.FindStringSubmatchIndex(text); loc != nil {
		meta.Year = atoi(text[loc[2]:loc[3]])
		markCut(loc[0])
	} else {
		var last []int
		for _, loc := range yearPattern.FindAllStringSubmatchIndex(text, -1) {
			if loc[2] > 0 {
				last = loc
			}
		}
		if last != nil {
			meta.Year = atoi(text[last[2]:last[3]])
			markCut(last[0])
		}
	}

	var quality []string
	for _, pattern := range qualityPatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			quality = append(quality, text[loc[0]:loc[1]])
			markCut(loc[0])
		}
	}
	meta.Quality = strings.Join(quality, " ")

	meta.Title = cleanTitle(text[:cut])

	var confidence float64
	if meta.Title != "" {
		confidence += evidenceTitle
	}
	if meta.Episode > 0 {
		confidence += evidenceEpisode
	}
	if meta.Season > 0 {
		confidence += evidenceSeason
	}
	if meta.Quality != "" {
		confidence += evidenceQuality
	}
	if meta.Year > 0 {
		confidence += evidenceYear
	}
	meta.Confidence = capConfidence(confidence)
	return meta, nil
}

func cleanTitle(value string) string {
	value = spacePattern.ReplaceAllString(value, " ")
	value = strings.TrimSpace(value)
	value = strings.TrimRight(value, " -([{")
	return strings.TrimSpace(value)
}

func capConfidence(v float64) float64 {
	if v > 1 {
		return 1
	}
	// Round away float accumulation noise so thresholds compare cleanly.
	return float64(int(v*1000+0.5)) / 1000
}

func atoi(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func isYear(n int) bool {
	return n >= 1900 && n <= 2099
}
