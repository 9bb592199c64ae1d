package media

import (
	"fmt"
	"strings"
	"time"

	"reelkeeper/internal/services"
)

// MediaType distinguishes catalog entries.
type MediaType string

const (
	MediaTypeTV    MediaType = "tv"
	MediaTypeMovie MediaType = "movie"
)

// ParseMediaType normalizes a catalog-supplied media type string.
func ParseMediaType(value string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "tv", "series", "show":
		return MediaTypeTV, true
	case "movie", "film":
		return MediaTypeMovie, true
	default:
		return "", false
	}
}

const minQueryYear = 1900

// NormalizedQuery is a validated catalog search request.
type NormalizedQuery struct {
	title string
	year  int
}

// NewNormalizedQuery validates title and year. Year 0 means unknown; any other
// value must fall in [1900, currentYear+5].
func NewNormalizedQuery(title string, year int) (NormalizedQuery, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return NormalizedQuery{}, services.Wrap(services.ErrValidation, "media", "new query", "title is required", nil)
	}
	if year != 0 {
		maxYear := time.Now().Year() + 5
		if year < minQueryYear || year > maxYear {
			return NormalizedQuery{}, services.Wrap(services.ErrValidation, "media", "new query",
				fmt.Sprintf("year %d outside [%d, %d]", year, minQueryYear, maxYear), nil)
		}
	}
	return NormalizedQuery{title: title, year: year}, nil
}

func (q NormalizedQuery) Title() string { return q.title }

func (q NormalizedQuery) Year() int { return q.year }

// HasYear reports whether the query carries a year.
func (q NormalizedQuery) HasYear() bool { return q.year != 0 }

func (q NormalizedQuery) String() string {
	if q.year == 0 {
		return q.title
	}
	return fmt.Sprintf("%s (%d)", q.title, q.year)
}

// MatchResult is one catalog candidate with its confidence.
type MatchResult struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	Confidence  float64   `json:"confidence"`
	MediaType   MediaType `json:"media_type"`
	PosterPath  string    `json:"poster_path,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	Popularity  float64   `json:"popularity,omitempty"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	GenreIDs    []int     `json:"genre_ids,omitempty"`
}

// NewMatchResult validates the confidence range, the media type, and the title.
func NewMatchResult(m MatchResult) (MatchResult, error) {
	if strings.TrimSpace(m.Title) == "" {
		return MatchResult{}, services.Wrap(services.ErrValidation, "media", "new match", "title is required", nil)
	}
	if m.MediaType != MediaTypeTV && m.MediaType != MediaTypeMovie {
		return MatchResult{}, services.Wrap(services.ErrValidation, "media", "new match",
			fmt.Sprintf("unknown media type %q", m.MediaType), nil)
	}
	if err := validateConfidence(m.Confidence); err != nil {
		return MatchResult{}, err
	}
	m.GenreIDs = append([]int(nil), m.GenreIDs...)
	return m, nil
}

// WithConfidence returns a copy of m carrying confidence.
func (m MatchResult) WithConfidence(confidence float64) (MatchResult, error) {
	if err := validateConfidence(confidence); err != nil {
		return MatchResult{}, err
	}
	m.Confidence = confidence
	m.GenreIDs = append([]int(nil), m.GenreIDs...)
	return m, nil
}

// HasGenre reports whether the candidate carries genre id.
func (m MatchResult) HasGenre(id int) bool {
	for _, g := range m.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

func validateConfidence(confidence float64) error {
	if confidence < 0 || confidence > 1 || confidence != confidence {
		return services.Wrap(services.ErrValidation, "media", "confidence",
			fmt.Sprintf("confidence %v outside [0, 1]", confidence), nil)
	}
	return nil
}
