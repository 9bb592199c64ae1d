package tmdb

import (
	"context"
	"errors"

	"reelkeeper/internal/media"
)

// SearchComprehensive searches the endpoint matching mediaType, or both TV
// and movie when mediaType is empty, and returns candidates with zero
// confidence for the caller to score. The boolean reports whether more than
// one candidate came back. A rate limit on either endpoint is returned as is,
// so callers can throttle.
func (c *Client) SearchComprehensive(ctx context.Context, query media.NormalizedQuery, mediaType media.MediaType) ([]media.MatchResult, bool, error) {
	opts := SearchOptions{Year: query.Year()}
	var searches []func(context.Context, string, SearchOptions) (*Response, error)
	switch mediaType {
	case media.MediaTypeTV:
		searches = append(searches, c.SearchTV)
	case media.MediaTypeMovie:
		searches = append(searches, c.SearchMovie)
	default:
		searches = append(searches, c.SearchTV, c.SearchMovie)
	}

	var (
		candidates []media.MatchResult
		errs       []error
	)
	for _, search := range searches {
		resp, err := search(ctx, query.Title(), opts)
		if err != nil {
			var rl *RateLimitError
			if errors.As(err, &rl) {
				return candidates, len(candidates) > 1, err
			}
			errs = append(errs, err)
			continue
		}
		for _, r := range resp.Results {
			if candidate, ok := toMatchResult(r); ok {
				candidates = append(candidates, candidate)
			}
		}
	}
	if len(candidates) == 0 && len(errs) > 0 {
		return nil, false, errors.Join(errs...)
	}
	return candidates, len(candidates) > 1, nil
}

func toMatchResult(r Result) (media.MatchResult, bool) {
	mediaType, ok := media.ParseMediaType(r.MediaType)
	if !ok {
		return media.MatchResult{}, false
	}
	candidate, err := media.NewMatchResult(media.MatchResult{
		ID:          r.ID,
		Title:       r.DisplayTitle(),
		Year:        r.Year(),
		MediaType:   mediaType,
		PosterPath:  r.PosterPath,
		Overview:    r.Overview,
		Popularity:  r.Popularity,
		VoteAverage: r.VoteAverage,
		GenreIDs:    r.GenreIDs,
	})
	if err != nil {
		return media.MatchResult{}, false
	}
	return candidate, true
}
