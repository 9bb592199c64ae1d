package organizer

import (
	"strings"
)

// OperationType selects how a file reaches its destination.
type OperationType string

const (
	OperationMove OperationType = "move"
	OperationCopy OperationType = "copy"
)

// ParseOperationType accepts "move" or "copy" in any case.
func ParseOperationType(value string) (OperationType, bool) {
	switch OperationType(strings.ToLower(strings.TrimSpace(value))) {
	case OperationMove:
		return OperationMove, true
	case OperationCopy:
		return OperationCopy, true
	default:
		return "", false
	}
}

// FileOperation is one planned filesystem mutation.
type FileOperation struct {
	ID          string        `json:"id"`
	Type        OperationType `json:"type"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Size        int64         `json:"size"`
	GroupTitle  string        `json:"group_title,omitempty"`
	// ExpectedHash is the content hash the source should carry, when known.
	ExpectedHash string `json:"expected_hash,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// ItemStatus is the per-operation outcome.
type ItemStatus string

const (
	ItemCommitted ItemStatus = "committed"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
)

// Item reasons. ReasonSourceRetained accompanies a committed move that was
// journaled as a copy.
const (
	ReasonSourceMissing  = "source_missing"
	ReasonAlreadyInPlace = "already_in_place"
	ReasonSourceRetained = "source_retained"
)

// ItemResult records what happened to one operation.
type ItemResult struct {
	Operation   FileOperation `json:"operation"`
	Status      ItemStatus    `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	BackupPath  string        `json:"backup_path,omitempty"`
	ContentHash string        `json:"content_hash,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Result summarizes an executed plan.
type Result struct {
	LogID        string       `json:"log_id,omitempty"`
	SuccessCount int          `json:"success_count"`
	SkippedCount int          `json:"skipped_count"`
	FailedCount  int          `json:"failed_count"`
	Details      []ItemResult `json:"details"`
}

func (r *Result) record(item ItemResult) {
	switch item.Status {
	case ItemCommitted:
		r.SuccessCount++
	case ItemSkipped:
		r.SkippedCount++
	case ItemFailed:
		r.FailedCount++
	}
	r.Details = append(r.Details, item)
}
