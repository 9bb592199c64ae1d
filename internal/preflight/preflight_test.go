package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelkeeper/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
		pass bool
	}{
		{"temp dir", t.TempDir(), true},
		{"missing", filepath.Join(t.TempDir(), "nope"), false},
		{"file", file, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckDirectoryAccess("test", tt.path)
			if result.Passed != tt.pass {
				t.Fatalf("Passed = %v, want %v (%s)", result.Passed, tt.pass, result.Detail)
			}
			if result.Detail == "" {
				t.Fatal("expected non-empty detail")
			}
		})
	}
}

func TestCheckTMDB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("api_key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		baseURL string
		key     string
		pass    bool
	}{
		{"ok", srv.URL, "good-key", true},
		{"trailing slash", srv.URL + "/", "good-key", true},
		{"bad key", srv.URL, "bad-key", false},
		{"missing url", "", "good-key", false},
		{"missing key", srv.URL, " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckTMDB(context.Background(), tt.baseURL, tt.key)
			if result.Passed != tt.pass {
				t.Fatalf("Passed = %v, want %v (%s)", result.Passed, tt.pass, result.Detail)
			}
		})
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MemoryCacheSkipsCacheDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LibraryDir = t.TempDir()
	cfg.Paths.JournalDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.CacheDir = filepath.Join(t.TempDir(), "missing")
	cfg.Cache.Backend = "memory"
	cfg.TMDB.APIKey = "key"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if Failed(results) {
		t.Fatalf("unexpected failure: %+v", results)
	}

	cfg.Cache.Backend = "sqlite"
	cfg.TMDB.APIKey = ""
	results = RunAll(context.Background(), &cfg)
	if len(results) != 5 || !Failed(results) {
		t.Fatalf("expected cache dir and api key failures, got %+v", results)
	}
}
