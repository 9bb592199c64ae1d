// Package api is the boundary the CLI talks to. Service wires the scan
// pipeline, grouping engine, matching engine, planner, executor, journal, and
// rollback manager from one configuration, and the view types translate
// internal models into transport-friendly DTOs for JSON output.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Collaborators that need credentials or disk
// (the TMDB provider, the cache store, the journal) are opened lazily so that
// scan and group work without them. A missing TMDB API key surfaces as
// services.ErrConfiguration from the first call that needs matching.
package api
