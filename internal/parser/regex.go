package parser

import (
	"regexp"

	"reelkeeper/internal/media"
)

type fallbackPattern struct {
	pattern    *regexp.Regexp
	confidence float64
}

// Patterns are tried in order; the first match wins.
var fallbackPatterns = []fallbackPattern{
	{regexp.MustCompile(`(?i)^(?P<title>.+?)[\s._-]+(?:ep?|episode)[\s._]*(?P<episode>\d{1,3})\b`), 0.6},
	{regexp.MustCompile(`^(?P<title>.+?)[\s._-]+(?P<season>[1-9])(?P<episode>\d{2})(?:[\s._-]|$)`), 0.55},
	{regexp.MustCompile(`^(?P<title>.+?)[\s._]*\((?P<year>(?:19|20)\d{2})\)`), 0.6},
	{regexp.MustCompile(`^(?P<title>.+?)[\s._-]+(?P<episode>\d{1,3})$`), 0.5},
	{regexp.MustCompile(`^(?P<title>.+)$`), 0.3},
}

// Regex applies the fallback patterns with fixed confidences.
type Regex struct {
	patterns []fallbackPattern
}

func NewRegex() *Regex { return &Regex{patterns: fallbackPatterns} }

func (*Regex) Name() string { return "regex" }

func (r *Regex) Parse(path string) (media.Metadata, error) {
	raw := stem(path)
	if m := leadingGroupPattern.FindStringSubmatch(raw); m != nil {
		raw = raw[len(m[0]):]
	}
	for _, fp := range r.patterns {
		m := fp.pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		meta := media.Metadata{Parser: "regex", Confidence: fp.confidence}
		for i, name := range fp.pattern.SubexpNames() {
			switch name {
			case "title":
				meta.Title = cleanTitle(separatorPattern.ReplaceAllString(m[i], " "))
			case "season":
				meta.Season = atoi(m[i])
			case "episode":
				meta.Episode = atoi(m[i])
			case "year":
				meta.Year = atoi(m[i])
			}
		}
		if meta.Title == "" {
			continue
		}
		return meta, nil
	}
	return media.Metadata{Parser: "regex"}, nil
}
