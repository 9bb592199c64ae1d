// Package config loads, normalizes, and validates reelkeeper configuration.
//
// Configuration lives in a TOML file (default ~/.config/reelkeeper/config.toml)
// decoded with go-toml. Load applies repository defaults first, decodes the
// file on top, expands ~ in path fields, pulls TMDB_API_KEY from the
// environment when the file leaves it blank, and validates every section.
//
// Sections map one-to-one onto subsystems: scanning filters and pipeline
// sizing, grouping weights, matching thresholds, provider rate limiting, the
// cache backend, and the library layout templates used by the planner. Keep
// new settings inside the section of the subsystem that consumes them so
// constructors can take the narrow struct instead of the whole Config.
package config
