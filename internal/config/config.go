package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	JournalDir string `toml:"journal_dir"`
	LogDir     string `toml:"log_dir"`
	CacheDir   string `toml:"cache_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxConcurrent  int    `toml:"max_concurrent"`
}

// Scan contains directory scanning filters and pipeline sizing.
type Scan struct {
	Extensions    []string `toml:"extensions"`
	Recursive     bool     `toml:"recursive"`
	ExcludeDirs   []string `toml:"exclude_dirs"`
	ExcludeFiles  []string `toml:"exclude_files"`
	MinSizeBytes  int64    `toml:"min_size_bytes"`
	Workers       int      `toml:"workers"`
	QueueCapacity int      `toml:"queue_capacity"`
}

// Grouping contains matcher weights and similarity thresholds.
type Grouping struct {
	Weights                  map[string]float64 `toml:"weights"`
	TitleSimilarityThreshold float64            `toml:"title_similarity_threshold"`
	MaxTitleLength           int                `toml:"max_title_length"`
}

// Matching contains candidate scoring and auto-accept policy.
type Matching struct {
	AnimationThreshold float64 `toml:"animation_threshold"`
	DefaultThreshold   float64 `toml:"default_threshold"`
	TieMargin          float64 `toml:"tie_margin"`
	YearWindow         int     `toml:"year_window"`
	AnimationGenreID   int     `toml:"animation_genre_id"`
	GenreBoost         float64 `toml:"genre_boost"`
	PartialMatchRatio  int     `toml:"partial_match_ratio"`
}

// RateLimit contains provider throttling settings.
type RateLimit struct {
	DefaultBackoffSeconds int     `toml:"default_backoff_seconds"`
	ErrorWindow           int     `toml:"error_window"`
	ErrorThreshold        float64 `toml:"error_threshold"`
	CacheOnlySeconds      int     `toml:"cache_only_seconds"`
}

// Cache contains configuration for the provider response cache.
type Cache struct {
	Backend         string `toml:"backend"` // memory, sqlite, badger
	SearchTTLHours  int    `toml:"search_ttl_hours"`
	DetailsTTLHours int    `toml:"details_ttl_hours"`
}

// Library contains the destination layout used by the planner.
type Library struct {
	TVDir               string `toml:"tv_dir"`
	MoviesDir           string `toml:"movies_dir"`
	TVFolderTemplate    string `toml:"tv_folder_template"`
	TVFileTemplate      string `toml:"tv_file_template"`
	MovieFolderTemplate string `toml:"movie_folder_template"`
	MovieFileTemplate   string `toml:"movie_file_template"`
	Operation           string `toml:"operation"` // move or copy
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelkeeper.
//
// Configuration sections by subsystem:
//   - Paths: library, journal, log, and cache directories
//   - TMDB: metadata provider credentials and transport limits
//   - Scan: filters and worker/queue sizing for the scan pipeline
//   - Grouping: matcher weights and similarity thresholds
//   - Matching: scoring thresholds and fallback tuning
//   - RateLimit: provider throttle and cache-only thresholds
//   - Cache: provider cache backend and TTLs
//   - Library: destination layout templates
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	TMDB      TMDB      `toml:"tmdb"`
	Scan      Scan      `toml:"scan"`
	Grouping  Grouping  `toml:"grouping"`
	Matching  Matching  `toml:"matching"`
	RateLimit RateLimit `toml:"rate_limit"`
	Cache     Cache     `toml:"cache"`
	Library   Library   `toml:"library"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelkeeper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		// Weights come from the file as a whole map or fall back to defaults
		// in normalize; merging key-by-key would break the sum invariant.
		cfg.Grouping.Weights = nil

		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelkeeper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the journal, log, and cache directories.
// LibraryDir is created on a best-effort basis so scans and plans can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JournalDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
