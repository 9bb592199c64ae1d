package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelkeeper/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantJournal := filepath.Join(tempHome, ".local", "share", "reelkeeper", "journal")
	if cfg.Paths.JournalDir != wantJournal {
		t.Fatalf("unexpected journal dir: got %q want %q", cfg.Paths.JournalDir, wantJournal)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != config.Default().TMDB.BaseURL {
		t.Fatalf("unexpected TMDB base url: %q", cfg.TMDB.BaseURL)
	}
	if cfg.Matching.AnimationThreshold != 0.2 || cfg.Matching.DefaultThreshold != 0.8 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Matching)
	}
	if len(cfg.Grouping.Weights) != 3 {
		t.Fatalf("expected default weights, got %v", cfg.Grouping.Weights)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TMDB_API_KEY", "")

	configPath := filepath.Join(tempHome, "config.toml")
	payload := struct {
		TMDB struct {
			APIKey string `toml:"api_key"`
		} `toml:"tmdb"`
		Scan struct {
			Extensions []string `toml:"extensions"`
			Workers    int      `toml:"workers"`
		} `toml:"scan"`
		Grouping struct {
			Weights map[string]float64 `toml:"weights"`
		} `toml:"grouping"`
		Library struct {
			Operation string `toml:"operation"`
		} `toml:"library"`
	}{}
	payload.TMDB.APIKey = "file-key"
	payload.Scan.Extensions = []string{"MKV", "mp4", ".mkv"}
	payload.Scan.Workers = 8
	payload.Grouping.Weights = map[string]float64{
		config.MatcherHashSimilarity:  0.2,
		config.MatcherTitleSimilarity: 0.8,
	}
	payload.Library.Operation = "COPY"

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Fatalf("unexpected api key %q", cfg.TMDB.APIKey)
	}
	if got := strings.Join(cfg.Scan.Extensions, ","); got != ".mkv,.mp4" {
		t.Fatalf("unexpected normalized extensions %q", got)
	}
	if cfg.Scan.Workers != 8 {
		t.Fatalf("unexpected workers %d", cfg.Scan.Workers)
	}
	if len(cfg.Grouping.Weights) != 2 || cfg.Grouping.Weights[config.MatcherTitleSimilarity] != 0.8 {
		t.Fatalf("expected file weights to replace defaults, got %v", cfg.Grouping.Weights)
	}
	if cfg.Library.Operation != "copy" {
		t.Fatalf("unexpected operation %q", cfg.Library.Operation)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "config.toml")
	content := "[grouping.weights]\nhash_similarity = 0.6\ntitle_similarity = 0.6\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected weight validation error")
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]float64
		wantErr bool
	}{
		{"defaults", config.DefaultWeights(), false},
		{"single", map[string]float64{"a": 1}, false},
		{"within tolerance", map[string]float64{"a": 0.5, "b": 0.500001}, false},
		{"sum too low", map[string]float64{"a": 0.5, "b": 0.4}, true},
		{"sum too high", map[string]float64{"a": 0.7, "b": 0.4}, true},
		{"negative", map[string]float64{"a": -0.5, "b": 1.5}, true},
		{"empty", map[string]float64{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateWeights(tt.weights)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateWeights(%v) error = %v, wantErr %v", tt.weights, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsUnknownCacheBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected cache backend validation error")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "trace"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected logging level validation error")
	}
	cfg.Logging.Level = "warning"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("warning should be accepted: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Fatalf("unexpected backend %q", cfg.Cache.Backend)
	}
}
