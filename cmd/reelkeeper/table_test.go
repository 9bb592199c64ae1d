package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"reelkeeper/internal/services"
)

func TestShortenPath(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		width int
		want  string
	}{
		{"fits", "/tv/Show/Season 01/Show - S01E01.mkv", 56, "/tv/Show/Season 01/Show - S01E01.mkv"},
		{"drops leading dirs", "/library/tv/Show/Season 01/Show - S01E01.mkv", 32, ".../Season 01/Show - S01E01.mkv"},
		{"keeps long file name", "/a/b/" + strings.Repeat("x", 40) + ".mkv", 20, ".../" + strings.Repeat("x", 40) + ".mkv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortenPath(tt.path, tt.width); got != tt.want {
				t.Fatalf("shortenPath(%q, %d) = %q, want %q", tt.path, tt.width, got, tt.want)
			}
		})
	}
}

func TestRenderTableShortensPathsAndKeepsFooterCase(t *testing.T) {
	long := "/srv/media/library/tv/Some Very Long Show Name (2019)/Season 01/Some Very Long Show Name - S01E01.mkv"
	out := renderTable(
		[]column{textCol("Op"), pathCol("Source"), numberCol("Size")},
		[][]string{{"move", long, "1.2 GB"}},
		"", "1 operations", "1.2 GB",
	)
	if strings.Contains(out, "/srv/media") {
		t.Fatalf("expected leading directories to be elided:\n%s", out)
	}
	if !strings.Contains(out, "Some Very Long Show Name - S01E01.mkv") {
		t.Fatalf("expected file name to survive:\n%s", out)
	}
	if !strings.Contains(out, "1 operations") {
		t.Fatalf("expected footer verbatim:\n%s", out)
	}
}

func TestReportError(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "journal", "get", "log typo not found", nil)

	var plain bytes.Buffer
	reportError(&plain, notFound, false)
	if strings.HasPrefix(plain.String(), "not found: ") {
		t.Fatalf("user-facing errors should drop the marker prefix: %q", plain.String())
	}
	if !strings.Contains(plain.String(), "log typo not found") {
		t.Fatalf("unexpected message %q", plain.String())
	}

	var structured bytes.Buffer
	reportError(&structured, notFound, true)
	var view errorView
	if err := json.Unmarshal(structured.Bytes(), &view); err != nil {
		t.Fatalf("decode %q: %v", structured.String(), err)
	}
	if view.Kind != "not_found" {
		t.Fatalf("kind = %q, want not_found", view.Kind)
	}

	var infra bytes.Buffer
	reportError(&infra, services.Wrap(services.ErrInfrastructure, "journal", "append", "write entry", errors.New("disk full")), false)
	if !strings.HasPrefix(infra.String(), "infrastructure error: ") {
		t.Fatalf("internal errors keep their marker: %q", infra.String())
	}
}

func TestWriteJSONKeepsAmpersands(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, map[string]string{"title": "Tom & Jerry"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"Tom & Jerry"`) {
		t.Fatalf("expected unescaped ampersand, got %s", buf.String())
	}
}
