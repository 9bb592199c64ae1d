package media

import (
	"path/filepath"
	"strings"
	"time"
)

// Status tracks how far a scanned file has progressed through the pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusParsed    Status = "parsed"
	StatusError     Status = "error"
	StatusGrouped   Status = "grouped"
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusOrganized Status = "organized"
)

// Metadata is the information a parser extracted from a filename.
type Metadata struct {
	Title      string  `json:"title,omitempty"`
	Year       int     `json:"year,omitempty"`
	Season     int     `json:"season,omitempty"`
	Episode    int     `json:"episode,omitempty"`
	EpisodeEnd int     `json:"episode_end,omitempty"`
	Quality    string  `json:"quality,omitempty"`
	Group      string  `json:"release_group,omitempty"`
	Confidence float64 `json:"confidence"`
	Parser     string  `json:"parser,omitempty"`
}

// Valid reports whether the metadata is usable downstream: a non-empty title
// and at least half confidence.
func (m Metadata) Valid() bool {
	return strings.TrimSpace(m.Title) != "" && m.Confidence >= 0.5
}

// ScannedFile is one media file discovered by the scanner.
type ScannedFile struct {
	Path        string       `json:"path"`
	Size        int64        `json:"size"`
	ModTime     time.Time    `json:"mod_time"`
	Metadata    Metadata     `json:"metadata"`
	ContentHash string       `json:"content_hash,omitempty"`
	Status      Status       `json:"status"`
	Err         string       `json:"error,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Match       *MatchResult `json:"match,omitempty"`
}

// Name returns the file's basename.
func (f *ScannedFile) Name() string {
	return filepath.Base(f.Path)
}

// Ext returns the lowercase extension including the dot.
func (f *ScannedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// BaseTitle returns the parsed title, else the basename without extension.
func (f *ScannedFile) BaseTitle() string {
	if title := strings.TrimSpace(f.Metadata.Title); title != "" {
		return title
	}
	name := f.Name()
	return strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
}

// HasTag reports whether tag was attached to the file.
func (f *ScannedFile) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag attaches tag once.
func (f *ScannedFile) AddTag(tag string) {
	if tag == "" || f.HasTag(tag) {
		return
	}
	f.Tags = append(f.Tags, tag)
}
