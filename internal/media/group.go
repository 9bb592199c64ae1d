package media

// Evidence records why a group was formed.
type Evidence struct {
	// MatcherScores holds, per successful matcher, its weight times the
	// share of this group's files it also kept together.
	MatcherScores   map[string]float64 `json:"matcher_scores,omitempty"`
	SelectedMatcher string             `json:"selected_matcher"`
	Confidence      float64            `json:"confidence"`
	Explanation     string             `json:"explanation,omitempty"`
}

// Group is a cluster of files believed to belong to the same series or season.
type Group struct {
	Title    string         `json:"title"`
	Season   int            `json:"season,omitempty"`
	Files    []*ScannedFile `json:"files"`
	Evidence *Evidence      `json:"evidence,omitempty"`
	Match    *MatchResult   `json:"match,omitempty"`
}

// Confidence returns the evidence confidence, or 0 when no evidence is attached.
func (g *Group) Confidence() float64 {
	if g == nil || g.Evidence == nil {
		return 0
	}
	return g.Evidence.Confidence
}

// HasDuplicates reports whether two or more members share an episode number
// within the same season.
func (g *Group) HasDuplicates() bool {
	type key struct{ season, episode int }
	seen := make(map[key]struct{}, len(g.Files))
	for _, f := range g.Files {
		if f.Metadata.Episode <= 0 {
			continue
		}
		k := key{season: f.Metadata.Season, episode: f.Metadata.Episode}
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// Year returns the first non-zero parsed year among the members.
func (g *Group) Year() int {
	for _, f := range g.Files {
		if f.Metadata.Year > 0 {
			return f.Metadata.Year
		}
	}
	return 0
}
