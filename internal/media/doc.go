// Package media defines the records that flow through the organizer: scanned
// files with their parsed metadata, groups of related files, catalog matches,
// and the validated query used to search the catalog.
//
// Constructors that can reject input (NewNormalizedQuery, NewMatchResult)
// return services.ErrValidation so callers can distinguish bad input from
// infrastructure failures.
package media
