package grouping

import (
	"fmt"
	"sort"

	"reelkeeper/internal/config"
	"reelkeeper/internal/media"
	"reelkeeper/internal/textutil"
)

// Matcher partitions files into groups. Every returned file must appear in at
// most one group.
type Matcher interface {
	Name() string
	Match(files []*media.ScannedFile) ([]*media.Group, error)
}

// HashSimilarity buckets files by exact normalized title.
type HashSimilarity struct {
	MaxTitleLength int
}

func (HashSimilarity) Name() string { return config.MatcherHashSimilarity }

func (m HashSimilarity) Match(files []*media.ScannedFile) ([]*media.Group, error) {
	b := newBuckets()
	for _, f := range files {
		key := textutil.NormalizeTitle(f.BaseTitle(), maxLen(m.MaxTitleLength))
		if key == "" {
			continue
		}
		b.add(key, f)
	}
	return b.groups(0), nil
}

// TitleSimilarity merges files whose title token sets have a Jaccard
// similarity at or above Threshold, transitively.
type TitleSimilarity struct {
	Threshold      float64
	MaxTitleLength int
}

func (TitleSimilarity) Name() string { return config.MatcherTitleSimilarity }

func (m TitleSimilarity) Match(files []*media.ScannedFile) ([]*media.Group, error) {
	if m.Threshold <= 0 || m.Threshold > 1 {
		return nil, fmt.Errorf("title similarity threshold %v outside (0, 1]", m.Threshold)
	}
	exact := newBuckets()
	for _, f := range files {
		key := textutil.NormalizeTitle(f.BaseTitle(), maxLen(m.MaxTitleLength))
		if key == "" {
			continue
		}
		exact.add(key, f)
	}

	keys := exact.order
	tokens := make([][]string, len(keys))
	for i, key := range keys {
		tokens[i] = textutil.Tokens(key)
	}
	uf := newUnionFind(len(keys))
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if textutil.Jaccard(tokens[i], tokens[j]) >= m.Threshold {
				uf.union(i, j)
			}
		}
	}

	merged := newBuckets()
	for i, key := range keys {
		root := keys[uf.find(i)]
		for _, f := range exact.members[key] {
			merged.add(root, f)
		}
	}
	return merged.groups(0), nil
}

// SeasonEpisode buckets files by series title and season. Files without a
// season are treated as season 1.
type SeasonEpisode struct {
	MaxTitleLength int
}

func (SeasonEpisode) Name() string { return config.MatcherSeasonEpisode }

func (m SeasonEpisode) Match(files []*media.ScannedFile) ([]*media.Group, error) {
	bySeason := map[int]*buckets{}
	var seasons []int
	for _, f := range files {
		key := textutil.NormalizeTitle(f.BaseTitle(), maxLen(m.MaxTitleLength))
		if key == "" {
			continue
		}
		season := f.Metadata.Season
		if season <= 0 {
			season = 1
		}
		b, ok := bySeason[season]
		if !ok {
			b = newBuckets()
			bySeason[season] = b
			seasons = append(seasons, season)
		}
		b.add(key, f)
	}
	sort.Ints(seasons)
	var out []*media.Group
	for _, season := range seasons {
		out = append(out, bySeason[season].groups(season)...)
	}
	return out, nil
}

func maxLen(v int) int {
	if v <= 0 {
		return textutil.DefaultMaxTitleLength
	}
	return v
}

// buckets preserves first-seen key order so output is deterministic for a
// given input order.
type buckets struct {
	order   []string
	members map[string][]*media.ScannedFile
}

func newBuckets() *buckets {
	return &buckets{members: map[string][]*media.ScannedFile{}}
}

func (b *buckets) add(key string, f *media.ScannedFile) {
	if _, ok := b.members[key]; !ok {
		b.order = append(b.order, key)
	}
	b.members[key] = append(b.members[key], f)
}

func (b *buckets) groups(season int) []*media.Group {
	out := make([]*media.Group, 0, len(b.order))
	for _, key := range b.order {
		files := b.members[key]
		out = append(out, &media.Group{
			Title:  displayTitle(files),
			Season: season,
			Files:  append([]*media.ScannedFile(nil), files...),
		})
	}
	return out
}

// displayTitle picks the most common untouched base title; ties go to the
// first seen.
func displayTitle(files []*media.ScannedFile) string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, f := range files {
		title := f.BaseTitle()
		counts[title]++
		if counts[title] > bestCount {
			best, bestCount = title, counts[title]
		}
	}
	return best
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union keeps the lower index as root so the earliest key names the cluster.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
