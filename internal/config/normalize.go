package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeScan()
	c.normalizeGrouping()
	c.normalizeCache()
	c.normalizeLibrary()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalDir) == "" {
		c.Paths.JournalDir = defaultJournalDir
	}
	if c.Paths.JournalDir, err = expandPath(c.Paths.JournalDir); err != nil {
		return fmt.Errorf("paths.journal_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	if c.TMDB.RequestTimeout <= 0 {
		c.TMDB.RequestTimeout = defaultTMDBRequestTimeout
	}
	if c.TMDB.MaxConcurrent <= 0 {
		c.TMDB.MaxConcurrent = defaultTMDBMaxConcurrent
	}
}

func (c *Config) normalizeScan() {
	exts := make([]string, 0, len(c.Scan.Extensions))
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Scan.Extensions = exts
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = defaultScanWorkers
	}
	if c.Scan.QueueCapacity <= 0 {
		c.Scan.QueueCapacity = defaultScanQueueCapacity
	}
}

func (c *Config) normalizeGrouping() {
	if len(c.Grouping.Weights) == 0 {
		c.Grouping.Weights = DefaultWeights()
	}
	if c.Grouping.MaxTitleLength <= 0 {
		c.Grouping.MaxTitleLength = defaultMaxTitleLength
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.SearchTTLHours <= 0 {
		c.Cache.SearchTTLHours = defaultSearchTTLHours
	}
	if c.Cache.DetailsTTLHours <= 0 {
		c.Cache.DetailsTTLHours = defaultDetailsTTLHours
	}
}

func (c *Config) normalizeLibrary() {
	c.Library.Operation = strings.ToLower(strings.TrimSpace(c.Library.Operation))
	if c.Library.Operation == "" {
		c.Library.Operation = defaultOperation
	}
	if strings.TrimSpace(c.Library.TVFolderTemplate) == "" {
		c.Library.TVFolderTemplate = defaultTVFolderTemplate
	}
	if strings.TrimSpace(c.Library.TVFileTemplate) == "" {
		c.Library.TVFileTemplate = defaultTVFileTemplate
	}
	if strings.TrimSpace(c.Library.MovieFolderTemplate) == "" {
		c.Library.MovieFolderTemplate = defaultMovieFolderTemplate
	}
	if strings.TrimSpace(c.Library.MovieFileTemplate) == "" {
		c.Library.MovieFileTemplate = defaultMovieFileTemplate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
