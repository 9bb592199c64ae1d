package pipeline

import "sync/atomic"

// Rejection reasons reported in ScanStats.
const (
	RejectExtension = "extension"
	RejectPattern   = "pattern"
	RejectHidden    = "hidden"
	RejectSize      = "size"
	RejectSymlink   = "symlink"
	RejectDir       = "excluded_dir"
)

type scanCounters struct {
	dirsScanned   atomic.Int64
	filesSeen     atomic.Int64
	filesAdmitted atomic.Int64
	errors        atomic.Int64

	rejectExtension atomic.Int64
	rejectPattern   atomic.Int64
	rejectHidden    atomic.Int64
	rejectSize      atomic.Int64
	rejectSymlink   atomic.Int64
	rejectDir       atomic.Int64
}

func (c *scanCounters) reject(reason string) {
	switch reason {
	case RejectExtension:
		c.rejectExtension.Add(1)
	case RejectPattern:
		c.rejectPattern.Add(1)
	case RejectHidden:
		c.rejectHidden.Add(1)
	case RejectSize:
		c.rejectSize.Add(1)
	case RejectSymlink:
		c.rejectSymlink.Add(1)
	case RejectDir:
		c.rejectDir.Add(1)
	}
}

func (c *scanCounters) snapshot() ScanStats {
	rejections := map[string]int64{}
	add := func(reason string, v int64) {
		if v > 0 {
			rejections[reason] = v
		}
	}
	add(RejectExtension, c.rejectExtension.Load())
	add(RejectPattern, c.rejectPattern.Load())
	add(RejectHidden, c.rejectHidden.Load())
	add(RejectSize, c.rejectSize.Load())
	add(RejectSymlink, c.rejectSymlink.Load())
	add(RejectDir, c.rejectDir.Load())
	return ScanStats{
		DirsScanned:   c.dirsScanned.Load(),
		FilesSeen:     c.filesSeen.Load(),
		FilesAdmitted: c.filesAdmitted.Load(),
		Errors:        c.errors.Load(),
		Rejections:    rejections,
	}
}

// ScanStats summarizes one directory walk.
type ScanStats struct {
	DirsScanned   int64            `json:"dirs_scanned"`
	FilesSeen     int64            `json:"files_seen"`
	FilesAdmitted int64            `json:"files_admitted"`
	Errors        int64            `json:"errors"`
	Rejections    map[string]int64 `json:"rejections,omitempty"`
}

type parserCounters struct {
	parsed       atomic.Int64
	fallbackUsed atomic.Int64
	errors       atomic.Int64
	structured   atomic.Int64
	regex        atomic.Int64
	other        atomic.Int64
}

func (c *parserCounters) recordParser(name string) {
	switch name {
	case "structured":
		c.structured.Add(1)
	case "regex":
		c.regex.Add(1)
	default:
		c.other.Add(1)
	}
}

func (c *parserCounters) snapshot() ParserStats {
	byParser := map[string]int64{}
	if v := c.structured.Load(); v > 0 {
		byParser["structured"] = v
	}
	if v := c.regex.Load(); v > 0 {
		byParser["regex"] = v
	}
	if v := c.other.Load(); v > 0 {
		byParser["other"] = v
	}
	return ParserStats{
		Parsed:       c.parsed.Load(),
		FallbackUsed: c.fallbackUsed.Load(),
		Errors:       c.errors.Load(),
		ByParser:     byParser,
	}
}

// ParserStats summarizes parser worker activity.
type ParserStats struct {
	Parsed       int64            `json:"parsed"`
	FallbackUsed int64            `json:"fallback_used"`
	Errors       int64            `json:"errors"`
	ByParser     map[string]int64 `json:"by_parser,omitempty"`
}

// Stats aggregates every counter collected during a pipeline run.
type Stats struct {
	Scan        ScanStats   `json:"scan"`
	Parser      ParserStats `json:"parser"`
	InputQueue  QueueStats  `json:"input_queue"`
	OutputQueue QueueStats  `json:"output_queue"`
	Collected   int         `json:"collected"`
}
