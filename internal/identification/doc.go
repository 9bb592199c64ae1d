// Package identification matches grouped files against the metadata catalog.
//
// The Engine normalizes a query from the group title and year, checks the
// cache, and asks the Provider for candidates under the rate-limit gate. An
// empty answer is retried without the year (filtered to a year window) and
// then with a reduced title biased toward animation. Candidates are scored by
// a weighted sum of title similarity, year proximity, media type agreement,
// and popularity. When the primary score is not decisive a priority-ordered
// fallback chain adjusts the scores before the selection policy decides
// whether to auto-accept or ask for manual selection.
//
// Provider transport failures are treated as zero candidates; only query
// validation errors reach the caller.
package identification
