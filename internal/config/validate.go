package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// weightTolerance bounds the allowed drift of the grouping weight sum from 1.0.
const weightTolerance = 1e-5

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if len(c.Scan.Extensions) == 0 {
		return errors.New("scan.extensions must list at least one extension")
	}
	if c.Scan.MinSizeBytes < 0 {
		return errors.New("scan.min_size_bytes must be non-negative")
	}
	return nil
}

func (c *Config) validateGrouping() error {
	return ValidateWeights(c.Grouping.Weights)
}

// ValidateWeights checks that every weight lies in [0,1] and that the weights
// sum to 1.0 within tolerance.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return errors.New("grouping.weights must not be empty")
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	var sum float64
	for _, name := range names {
		w := weights[name]
		if math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("grouping.weights.%s must be between 0 and 1, got %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("grouping.weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	for name, v := range map[string]float64{
		"matching.animation_threshold": m.AnimationThreshold,
		"matching.default_threshold":   m.DefaultThreshold,
		"matching.tie_margin":          m.TieMargin,
		"matching.genre_boost":         m.GenreBoost,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if m.YearWindow < 0 {
		return errors.New("matching.year_window must be non-negative")
	}
	if m.PartialMatchRatio < 0 || m.PartialMatchRatio > 100 {
		return errors.New("matching.partial_match_ratio must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.ErrorThreshold <= 0 || c.RateLimit.ErrorThreshold > 1 {
		return errors.New("rate_limit.error_threshold must be in (0, 1]")
	}
	if c.RateLimit.ErrorWindow <= 0 {
		return errors.New("rate_limit.error_window must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory", "sqlite", "badger":
		return nil
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (want memory, sqlite, or badger)", c.Cache.Backend)
	}
}

func (c *Config) validateLibrary() error {
	if c.Library.TVDir == "" {
		return errors.New("library.tv_dir must be set")
	}
	if c.Library.MoviesDir == "" {
		return errors.New("library.movies_dir must be set")
	}
	switch c.Library.Operation {
	case "move", "copy":
	default:
		return fmt.Errorf("library.operation: unsupported value %q (want move or copy)", c.Library.Operation)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
