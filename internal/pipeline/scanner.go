package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"reelkeeper/internal/config"
	"reelkeeper/internal/logging"
)

// Filters controls which files the scanner admits.
type Filters struct {
	Extensions   []string
	Recursive    bool
	ExcludeDirs  []string
	ExcludeFiles []string
	MinSize      int64
}

// FiltersFromConfig builds filters from the scan configuration.
func FiltersFromConfig(cfg config.Scan) Filters {
	return Filters{
		Extensions:   append([]string(nil), cfg.Extensions...),
		Recursive:    cfg.Recursive,
		ExcludeDirs:  append([]string(nil), cfg.ExcludeDirs...),
		ExcludeFiles: append([]string(nil), cfg.ExcludeFiles...),
		MinSize:      cfg.MinSizeBytes,
	}
}

// FileDescriptor is an admitted file awaiting parsing.
type FileDescriptor struct {
	Path    string
	Size    int64
	ModTime time.Time
}

var systemFileNames = map[string]struct{}{
	"thumbs.db":   {},
	"desktop.ini": {},
	".ds_store":   {},
	"icon\r":      {},
}

// Scanner walks a directory tree and emits admitted files.
type Scanner struct {
	filters    Filters
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewScanner constructs a scanner. Invalid glob patterns are dropped with a
// warning.
func NewScanner(filters Filters, logger *slog.Logger) *Scanner {
	logger = logging.NewComponentLogger(logger, "scanner")
	s := &Scanner{
		filters:    filters,
		extensions: make(map[string]struct{}, len(filters.Extensions)),
		logger:     logger,
	}
	for _, ext := range filters.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.extensions[ext] = struct{}{}
	}
	s.filters.ExcludeDirs = validPatterns(logger, filters.ExcludeDirs)
	s.filters.ExcludeFiles = validPatterns(logger, filters.ExcludeFiles)
	return s
}

func validPatterns(logger *slog.Logger, patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			logging.WarnWithContext(logger, "ignoring invalid exclusion pattern", "scan_pattern_invalid",
				logging.String("pattern", p),
				logging.String(logging.FieldErrorHint, "fix the glob in scan.exclude_dirs or scan.exclude_files"),
				logging.String(logging.FieldImpact, "pattern has no effect"),
			)
			continue
		}
		out = append(out, p)
	}
	return out
}

// Scan walks root and pushes admitted files onto out. A missing or
// non-directory root yields empty stats and no error. Scan does not close out.
func (s *Scanner) Scan(ctx context.Context, root string, out *Queue[FileDescriptor]) (ScanStats, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		reason := "not a directory"
		if err != nil {
			reason = err.Error()
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "scan root unavailable", "scan_root_unavailable",
			logging.String("root", root),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "check the path exists and is a directory"),
			logging.String(logging.FieldImpact, "no files scanned"),
		)
		return ScanStats{}, nil
	}
	root = filepath.Clean(root)
	counters := &scanCounters{}

	conf := fastwalk.Config{
		Follow: false,
	}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			counters.errors.Add(1)
			s.logger.Debug("walk error", logging.String("path", path), logging.Error(err))
			return nil
		}
		if d.IsDir() {
			return s.visitDir(counters, root, path, d)
		}
		return s.visitFile(ctx, counters, path, d, out)
	})
	stats := counters.snapshot()
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return stats, walkErr
	}
	return stats, nil
}

func (s *Scanner) visitDir(counters *scanCounters, root, path string, d fs.DirEntry) error {
	if path == root {
		counters.dirsScanned.Add(1)
		return nil
	}
	if !s.filters.Recursive {
		return fastwalk.SkipDir
	}
	if matchAny(s.filters.ExcludeDirs, d.Name()) {
		counters.reject(RejectDir)
		return fastwalk.SkipDir
	}
	counters.dirsScanned.Add(1)
	return nil
}

func (s *Scanner) visitFile(ctx context.Context, counters *scanCounters, path string, d fs.DirEntry, out *Queue[FileDescriptor]) error {
	counters.filesSeen.Add(1)
	if d.Type()&fs.ModeSymlink != 0 {
		counters.reject(RejectSymlink)
		return nil
	}
	if !d.Type().IsRegular() {
		return nil
	}
	name := d.Name()
	if reason, ok := s.admit(name); !ok {
		counters.reject(reason)
		return nil
	}
	info, err := d.Info()
	if err != nil {
		counters.errors.Add(1)
		return nil
	}
	if s.filters.MinSize > 0 && info.Size() < s.filters.MinSize {
		counters.reject(RejectSize)
		return nil
	}
	if err := out.Put(ctx, FileDescriptor{Path: path, Size: info.Size(), ModTime: info.ModTime()}); err != nil {
		return err
	}
	counters.filesAdmitted.Add(1)
	return nil
}

// admit applies the name-only checks, cheapest first.
func (s *Scanner) admit(name string) (string, bool) {
	if len(s.extensions) > 0 {
		if _, ok := s.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			return RejectExtension, false
		}
	}
	if matchAny(s.filters.ExcludeFiles, name) {
		return RejectPattern, false
	}
	if strings.HasPrefix(name, ".") {
		return RejectHidden, false
	}
	if _, ok := systemFileNames[strings.ToLower(name)]; ok {
		return RejectHidden, false
	}
	return "", true
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
