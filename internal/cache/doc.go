// Package cache stores provider responses keyed by (cache type, key) with a
// per-type time to live.
//
// Three backends implement Store: an in-process map, a SQLite table, and a
// Badger key-value directory that expires entries natively. Safe wraps any
// Store so lookups that fail are logged and treated as misses; callers in the
// matching path never see cache errors.
package cache
