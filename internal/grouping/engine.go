package grouping

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reelkeeper/internal/config"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/services"
	"reelkeeper/internal/textutil"
)

var numberedVariantPattern = regexp.MustCompile(`^(.*\S)\s*\((\d+)\)$`)

// Engine runs matchers and keeps the partition of the best-weighted one.
type Engine struct {
	matchers []Matcher
	weights  map[string]float64
	logger   *slog.Logger
}

// NewEngine validates weights and returns an engine. Each weight must lie in
// [0, 1], the weights must sum to 1 within 1e-5, and every matcher must have a
// weight.
func NewEngine(matchers []Matcher, weights map[string]float64, logger *slog.Logger) (*Engine, error) {
	if len(matchers) == 0 {
		return nil, services.Wrap(services.ErrValidation, "grouping", "new engine", "at least one matcher is required", nil)
	}
	if err := config.ValidateWeights(weights); err != nil {
		return nil, services.Wrap(services.ErrValidation, "grouping", "new engine", "invalid weights", err)
	}
	seen := map[string]struct{}{}
	for _, m := range matchers {
		if m == nil {
			return nil, services.Wrap(services.ErrValidation, "grouping", "new engine", "nil matcher", nil)
		}
		name := m.Name()
		if _, ok := weights[name]; !ok {
			return nil, services.Wrap(services.ErrValidation, "grouping", "new engine",
				fmt.Sprintf("no weight for matcher %q", name), nil)
		}
		if _, dup := seen[name]; dup {
			return nil, services.Wrap(services.ErrValidation, "grouping", "new engine",
				fmt.Sprintf("duplicate matcher %q", name), nil)
		}
		seen[name] = struct{}{}
	}
	copied := make(map[string]float64, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &Engine{
		matchers: append([]Matcher(nil), matchers...),
		weights:  copied,
		logger:   logging.NewComponentLogger(logger, "grouping"),
	}, nil
}

// NewFromConfig builds the stock matcher set from grouping configuration.
func NewFromConfig(cfg config.Grouping, logger *slog.Logger) (*Engine, error) {
	matchers := []Matcher{
		HashSimilarity{MaxTitleLength: cfg.MaxTitleLength},
		TitleSimilarity{Threshold: cfg.TitleSimilarityThreshold, MaxTitleLength: cfg.MaxTitleLength},
		SeasonEpisode{MaxTitleLength: cfg.MaxTitleLength},
	}
	return NewEngine(matchers, cfg.Weights, logger)
}

type matcherRun struct {
	matcher Matcher
	groups  []*media.Group
}

// Group clusters files. Files without a derivable title are dropped. An error
// is returned only when every matcher failed.
func (e *Engine) Group(files []*media.ScannedFile) ([]*media.Group, error) {
	usable := make([]*media.ScannedFile, 0, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		if textutil.NormalizeTitle(f.BaseTitle(), 0) == "" {
			logging.WarnWithContext(e.logger, "dropping file without derivable title", "grouping_title_missing",
				logging.String("path", f.Path),
				logging.String(logging.FieldErrorHint, "rename the file so it carries a series title"),
				logging.String(logging.FieldImpact, "file is not organized"),
			)
			continue
		}
		usable = append(usable, f)
	}
	if len(usable) == 0 {
		return []*media.Group{}, nil
	}

	var runs []matcherRun
	for _, m := range e.matchers {
		groups, err := e.runMatcher(m, usable)
		if err != nil {
			logging.WarnWithContext(e.logger, "matcher failed", "grouping_matcher_failed",
				logging.String("matcher", m.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check matcher configuration"),
				logging.String(logging.FieldImpact, "matcher excluded from selection"),
			)
			continue
		}
		runs = append(runs, matcherRun{matcher: m, groups: groups})
	}
	if len(runs) == 0 {
		return nil, services.Wrap(services.ErrDataProcessing, "grouping", "group", "all matchers failed", nil)
	}

	selected := runs[0]
	for _, run := range runs[1:] {
		if e.weights[run.matcher.Name()] > e.weights[selected.matcher.Name()] {
			selected = run
		}
	}

	placements := make([]map[*media.ScannedFile]int, len(runs))
	for i, run := range runs {
		placements[i] = placementOf(run.groups)
	}
	weight := e.weights[selected.matcher.Name()]

	groups := mergeNumberedVariants(selected.groups)
	for _, g := range groups {
		cohesion := groupCohesion(g)
		scores := make(map[string]float64, len(runs))
		for i, run := range runs {
			name := run.matcher.Name()
			scores[name] = e.weights[name] * agreement(g, placements[i])
		}
		g.Evidence = &media.Evidence{
			MatcherScores:   scores,
			SelectedMatcher: selected.matcher.Name(),
			Confidence:      clamp01(weight * cohesion),
			Explanation: fmt.Sprintf("%s selected with weight %.2f of %d successful matchers; cohesion %.2f over %d files",
				selected.matcher.Name(), weight, len(runs), cohesion, len(g.Files)),
		}
		for _, f := range g.Files {
			if f.Status == media.StatusParsed || f.Status == media.StatusPending {
				f.Status = media.StatusGrouped
			}
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ci, cj := groups[i].Confidence(), groups[j].Confidence()
		if ci != cj {
			return ci > cj
		}
		return groups[i].Title < groups[j].Title
	})

	e.logger.Debug("grouping complete",
		logging.String("matcher", selected.matcher.Name()),
		logging.Int("files", len(usable)),
		logging.Int("groups", len(groups)),
	)
	return groups, nil
}

func (e *Engine) runMatcher(m Matcher, files []*media.ScannedFile) (groups []*media.Group, err error) {
	defer func() {
		if r := recover(); r != nil {
			groups = nil
			err = fmt.Errorf("matcher panic: %v", r)
		}
	}()
	return m.Match(files)
}

// mergeNumberedVariants folds "Title (N)" groups into a "Title" group of the
// same season. Base files keep their position ahead of variant files.
func mergeNumberedVariants(groups []*media.Group) []*media.Group {
	type baseKey struct {
		title  string
		season int
	}
	bases := map[baseKey]*media.Group{}
	for _, g := range groups {
		if numberedVariantPattern.MatchString(g.Title) {
			continue
		}
		key := baseKey{title: strings.ToLower(strings.TrimSpace(g.Title)), season: g.Season}
		if _, ok := bases[key]; !ok {
			bases[key] = g
		}
	}

	type variant struct {
		group *media.Group
		n     int
	}
	pending := map[*media.Group][]variant{}
	out := make([]*media.Group, 0, len(groups))
	for _, g := range groups {
		m := numberedVariantPattern.FindStringSubmatch(g.Title)
		if m == nil {
			out = append(out, g)
			continue
		}
		key := baseKey{title: strings.ToLower(strings.TrimSpace(m[1])), season: g.Season}
		base, ok := bases[key]
		if !ok {
			out = append(out, g)
			continue
		}
		n, _ := strconv.Atoi(m[2])
		pending[base] = append(pending[base], variant{group: g, n: n})
	}
	for base, variants := range pending {
		sort.SliceStable(variants, func(i, j int) bool { return variants[i].n < variants[j].n })
		for _, v := range variants {
			base.Files = append(base.Files, v.group.Files...)
		}
	}
	return out
}

// groupCohesion is the mean token Jaccard between each member title and the
// group title.
func groupCohesion(g *media.Group) float64 {
	titleTokens := textutil.Tokens(g.Title)
	if len(titleTokens) == 0 || len(g.Files) == 0 {
		return 1
	}
	var total float64
	for _, f := range g.Files {
		total += textutil.Jaccard(textutil.Tokens(f.BaseTitle()), titleTokens)
	}
	return total / float64(len(g.Files))
}

// placementOf maps each file to the index of the group holding it.
func placementOf(groups []*media.Group) map[*media.ScannedFile]int {
	out := make(map[*media.ScannedFile]int)
	for i, g := range groups {
		for _, f := range g.Files {
			out[f] = i
		}
	}
	return out
}

// agreement is the largest share of g's files that one matcher placed in a
// single group of its own.
func agreement(g *media.Group, placement map[*media.ScannedFile]int) float64 {
	if len(g.Files) == 0 {
		return 0
	}
	counts := make(map[int]int)
	best := 0
	for _, f := range g.Files {
		idx, ok := placement[f]
		if !ok {
			continue
		}
		counts[idx]++
		best = max(best, counts[idx])
	}
	return float64(best) / float64(len(g.Files))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
