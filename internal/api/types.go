package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FileView describes a scanned file.
type FileView struct {
	Path       string     `json:"path"`
	Size       int64      `json:"size"`
	Title      string     `json:"title,omitempty"`
	Year       int        `json:"year,omitempty"`
	Season     int        `json:"season,omitempty"`
	Episode    int        `json:"episode,omitempty"`
	EpisodeEnd int        `json:"episodeEnd,omitempty"`
	Quality    string     `json:"quality,omitempty"`
	Parser     string     `json:"parser,omitempty"`
	Confidence float64    `json:"confidence"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Match      *MatchView `json:"match,omitempty"`
}

// MatchView describes a catalog candidate.
type MatchView struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Year       int     `json:"year,omitempty"`
	MediaType  string  `json:"mediaType"`
	Confidence float64 `json:"confidence"`
	Popularity float64 `json:"popularity,omitempty"`
}

// GroupView describes a group with its evidence and match.
type GroupView struct {
	Title                string             `json:"title"`
	Season               int                `json:"season,omitempty"`
	Confidence           float64            `json:"confidence"`
	Matcher              string             `json:"matcher,omitempty"`
	MatcherScores        map[string]float64 `json:"matcherScores,omitempty"`
	Explanation          string             `json:"explanation,omitempty"`
	HasDuplicates        bool               `json:"hasDuplicates"`
	Files                []FileView         `json:"files"`
	Match                *MatchView         `json:"match,omitempty"`
	Candidates           []MatchView        `json:"candidates,omitempty"`
	NeedsManualSelection bool               `json:"needsManualSelection"`
}

// OperationView describes a planned or executed file operation.
type OperationView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Size        int64  `json:"size"`
	Group       string `json:"group,omitempty"`
	Warning     string `json:"warning,omitempty"`
	Status      string `json:"status,omitempty"`
	Reason      string `json:"reason,omitempty"`
	BackupPath  string `json:"backupPath,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ExecutionView summarizes an executed plan.
type ExecutionView struct {
	LogID      string          `json:"logId,omitempty"`
	Moved      int             `json:"moved"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Operations []OperationView `json:"operations"`
}

// ScanStatsView flattens pipeline statistics.
type ScanStatsView struct {
	DirsScanned   int64            `json:"dirsScanned"`
	FilesSeen     int64            `json:"filesSeen"`
	FilesAdmitted int64            `json:"filesAdmitted"`
	ScanErrors    int64            `json:"scanErrors"`
	Rejections    map[string]int64 `json:"rejections,omitempty"`
	Parsed        int64            `json:"parsed"`
	FallbackUsed  int64            `json:"fallbackUsed"`
	ParseErrors   int64            `json:"parseErrors"`
	ByParser      map[string]int64 `json:"byParser,omitempty"`
	PeakQueue     int64            `json:"peakQueueDepth"`
	Collected     int              `json:"collected"`
}

// LogSummaryView describes a journal.
type LogSummaryView struct {
	LogID     string `json:"logId"`
	CreatedAt string `json:"createdAt"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"sizeBytes"`
}

// LogEntryView describes one journal entry.
type LogEntryView struct {
	OperationID string `json:"operationId"`
	Timestamp   string `json:"timestamp"`
	Action      string `json:"action"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	ContentHash string `json:"contentHash,omitempty"`
	FileSize    int64  `json:"fileSize"`
	BackupPath  string `json:"backupPath,omitempty"`
}
