// Package tmdb provides the minimal TMDB API client used to identify scanned
// series and films.
//
// It authenticates requests and exposes TV and movie search with an optional
// year filter. Responses are strongly typed, and SearchComprehensive converts
// them into catalog candidates for the matching engine. HTTP 429 responses
// surface as *RateLimitError carrying the server's Retry-After so callers can
// throttle. Options allow tests to supply custom HTTP clients without modifying
// production code.
package tmdb
