package preflight

import (
	"context"
	"strings"

	"reelkeeper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the offline checks for cfg. TMDB reachability is left to
// CheckTMDB so that validation works without a network.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Journal directory", cfg.Paths.JournalDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Cache.Backend != "memory" {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	}
	results = append(results, CheckAPIKey(cfg.TMDB.APIKey))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// CheckAPIKey only verifies that a key is present.
func CheckAPIKey(apiKey string) Result {
	const name = "TMDB API key"
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing (set tmdb.api_key or TMDB_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
