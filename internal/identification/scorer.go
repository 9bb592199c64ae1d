package identification

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"reelkeeper/internal/media"
	"reelkeeper/internal/services"
	"reelkeeper/internal/textutil"
)

// Factor contributes one term of the confidence score, in [0, 1].
type Factor struct {
	Name   string
	Weight float64
	Score  func(query media.NormalizedQuery, expected media.MediaType, candidate media.MatchResult) (float64, error)
}

// Scorer combines factors into a confidence in [0, 1].
type Scorer struct {
	factors []Factor
}

const factorWeightTolerance = 1e-5

// NewScorer validates that the factor weights lie in [0, 1] and sum to 1.
func NewScorer(factors []Factor) (*Scorer, error) {
	if len(factors) == 0 {
		return nil, services.Wrap(services.ErrValidation, "identification", "new scorer", "no factors", nil)
	}
	var sum float64
	for _, f := range factors {
		if f.Score == nil {
			return nil, services.Wrap(services.ErrValidation, "identification", "new scorer", "factor "+f.Name+" has no score func", nil)
		}
		if f.Weight < 0 || f.Weight > 1 || math.IsNaN(f.Weight) {
			return nil, services.Wrap(services.ErrValidation, "identification", "new scorer",
				fmt.Sprintf("factor %s weight %v outside [0, 1]", f.Name, f.Weight), nil)
		}
		sum += f.Weight
	}
	if math.Abs(sum-1) > factorWeightTolerance {
		return nil, services.Wrap(services.ErrValidation, "identification", "new scorer",
			fmt.Sprintf("factor weights sum to %.6f", sum), nil)
	}
	return &Scorer{factors: append([]Factor(nil), factors...)}, nil
}

// DefaultScorer scores title similarity 0.5, year proximity 0.25, media type
// 0.15, and popularity 0.10. yearWindow bounds the year decay.
func DefaultScorer(yearWindow int) *Scorer {
	scorer, err := NewScorer([]Factor{
		{Name: "title", Weight: 0.5, Score: titleSimilarity},
		{Name: "year", Weight: 0.25, Score: yearProximity(yearWindow)},
		{Name: "media_type", Weight: 0.15, Score: mediaTypeMatch},
		{Name: "popularity", Weight: 0.10, Score: popularityScore},
	})
	if err != nil {
		panic(err)
	}
	return scorer
}

// Score returns the weighted sum. A factor that fails or panics contributes 0.
func (s *Scorer) Score(query media.NormalizedQuery, expected media.MediaType, candidate media.MatchResult) float64 {
	var total float64
	for _, f := range s.factors {
		total += f.Weight * safeFactor(f, query, expected, candidate)
	}
	return clamp01(total)
}

// Rank scores every candidate and orders by confidence, then popularity.
func (s *Scorer) Rank(query media.NormalizedQuery, expected media.MediaType, candidates []media.MatchResult) []media.MatchResult {
	out := make([]media.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		scored, err := c.WithConfidence(s.Score(query, expected, c))
		if err != nil {
			continue
		}
		out = append(out, scored)
	}
	sortCandidates(out)
	return out
}

func safeFactor(f Factor, query media.NormalizedQuery, expected media.MediaType, candidate media.MatchResult) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
		}
	}()
	v, err := f.Score(query, expected, candidate)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return clamp01(v)
}

func sortCandidates(candidates []media.MatchResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Popularity > candidates[j].Popularity
	})
}

func titleSimilarity(query media.NormalizedQuery, _ media.MediaType, candidate media.MatchResult) (float64, error) {
	a := textutil.NormalizeTitle(query.Title(), textutil.DefaultMaxTitleLength)
	b := textutil.NormalizeTitle(candidate.Title, textutil.DefaultMaxTitleLength)
	if a == "" || b == "" {
		return 0, errors.New("empty title")
	}
	if a == b {
		return 1, nil
	}
	ratio := float64(textutil.Ratio(a, b)) / 100
	jaccard := textutil.Jaccard(textutil.Tokens(a), textutil.Tokens(b))
	return math.Max(ratio, jaccard), nil
}

func yearProximity(window int) func(media.NormalizedQuery, media.MediaType, media.MatchResult) (float64, error) {
	if window < 1 {
		window = 1
	}
	return func(query media.NormalizedQuery, _ media.MediaType, candidate media.MatchResult) (float64, error) {
		if !query.HasYear() || candidate.Year == 0 {
			return 0.5, nil
		}
		diff := query.Year() - candidate.Year
		if diff < 0 {
			diff = -diff
		}
		return math.Max(0, 1-float64(diff)/float64(window)), nil
	}
}

func mediaTypeMatch(_ media.NormalizedQuery, expected media.MediaType, candidate media.MatchResult) (float64, error) {
	switch {
	case expected == "":
		return 0.5, nil
	case expected == candidate.MediaType:
		return 1, nil
	default:
		return 0, nil
	}
}

// popularityScore maps TMDB popularity onto [0, 1] logarithmically; 999 and
// above saturate.
func popularityScore(_ media.NormalizedQuery, _ media.MediaType, candidate media.MatchResult) (float64, error) {
	if candidate.Popularity <= 0 {
		return 0, nil
	}
	return math.Min(1, math.Log10(1+candidate.Popularity)/3), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
