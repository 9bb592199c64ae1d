package textutil

import (
	"math"

	"github.com/agext/levenshtein"
)

var ratioParams = levenshtein.NewParams().SubCost(2)

// Jaccard returns |A ∩ B| / |A ∪ B| over the token sets. Two empty sets
// score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Ratio returns the edit-distance similarity of a and b in 0..100.
func Ratio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(levenshtein.Similarity(a, b, ratioParams) * 100))
}

// PartialRatio slides the shorter string across the longer one and returns
// the best Ratio of any equal-length window.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}
	needle := string(shorter)
	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		score := Ratio(needle, string(longer[i:i+len(shorter)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}
