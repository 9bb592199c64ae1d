package identification

import (
	"fmt"
	"log/slog"
	"sort"

	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/textutil"
)

// Fallback adjusts ranked candidates when primary scoring is not decisive.
type Fallback interface {
	Name() string
	Priority() int
	Apply(query media.NormalizedQuery, candidates []media.MatchResult) ([]media.MatchResult, error)
}

// FallbackChain applies fallbacks in ascending priority. Each consumes the
// previous output; a failing fallback is skipped.
type FallbackChain struct {
	steps  []Fallback
	logger *slog.Logger
}

func NewFallbackChain(logger *slog.Logger, steps ...Fallback) *FallbackChain {
	sorted := append([]Fallback(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &FallbackChain{steps: sorted, logger: logging.NewComponentLogger(logger, "fallback")}
}

// Apply runs the chain and returns candidates re-ranked.
func (c *FallbackChain) Apply(query media.NormalizedQuery, candidates []media.MatchResult) []media.MatchResult {
	current := append([]media.MatchResult(nil), candidates...)
	for _, step := range c.steps {
		next, err := safeApply(step, query, current)
		if err != nil {
			logging.WarnWithContext(c.logger, "fallback skipped", "fallback_failed",
				logging.String("fallback", step.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect candidate data for malformed entries"),
				logging.String(logging.FieldImpact, "scores left unadjusted by this fallback"),
			)
			continue
		}
		current = next
	}
	sortCandidates(current)
	return current
}

func safeApply(step Fallback, query media.NormalizedQuery, candidates []media.MatchResult) (out []media.MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("fallback panic: %v", r)
		}
	}()
	in := append([]media.MatchResult(nil), candidates...)
	return step.Apply(query, in)
}

// GenreBoost raises candidates that carry GenreID.
type GenreBoost struct {
	GenreID int
	Boost   float64
}

func (GenreBoost) Name() string  { return "genre_boost" }
func (GenreBoost) Priority() int { return 10 }

func (g GenreBoost) Apply(_ media.NormalizedQuery, candidates []media.MatchResult) ([]media.MatchResult, error) {
	for i, c := range candidates {
		if !c.HasGenre(g.GenreID) {
			continue
		}
		boosted, err := c.WithConfidence(clamp01(c.Confidence + g.Boost))
		if err != nil {
			return nil, err
		}
		candidates[i] = boosted
	}
	return candidates, nil
}

// PartialMatch raises candidates whose title partially matches the query at
// MinRatio or better.
type PartialMatch struct {
	MinRatio int
	Boost    float64
}

func (PartialMatch) Name() string  { return "partial_match" }
func (PartialMatch) Priority() int { return 20 }

func (p PartialMatch) Apply(query media.NormalizedQuery, candidates []media.MatchResult) ([]media.MatchResult, error) {
	q := textutil.NormalizeTitle(query.Title(), textutil.DefaultMaxTitleLength)
	for i, c := range candidates {
		if textutil.PartialRatio(q, textutil.NormalizeTitle(c.Title, textutil.DefaultMaxTitleLength)) < p.MinRatio {
			continue
		}
		boosted, err := c.WithConfidence(clamp01(c.Confidence + p.Boost))
		if err != nil {
			return nil, err
		}
		candidates[i] = boosted
	}
	return candidates, nil
}
