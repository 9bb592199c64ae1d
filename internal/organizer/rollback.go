package organizer

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"reelkeeper/internal/fileutil"
	"reelkeeper/internal/journal"
	"reelkeeper/internal/logging"
)

// Rollback warnings attached to planned operations.
const (
	WarningHashMismatch  = "content hash differs from journal"
	WarningSourceMissing = "journaled destination no longer exists"
)

// RollbackManager plans the inverse of a journaled execution.
type RollbackManager struct {
	journal *journal.Journal
	logger  *slog.Logger
	newID   func() string
}

func NewRollbackManager(j *journal.Journal, logger *slog.Logger) *RollbackManager {
	return &RollbackManager{
		journal: j,
		logger:  logging.NewComponentLogger(logger, "rollback"),
		newID:   func() string { return uuid.NewString() },
	}
}

// Plan loads logID and returns, in reverse journal order, a move from each
// entry's destination back to its source. A displaced backup is moved back
// into place right after. Nothing is mutated; apply the plan with an Executor.
func (r *RollbackManager) Plan(ctx context.Context, logID string) ([]FileOperation, error) {
	log, err := r.journal.GetLogByID(logID)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldLogID, logID))

	plan := make([]FileOperation, 0, len(log.Entries))
	for i := len(log.Entries) - 1; i >= 0; i-- {
		entry := log.Entries[i]
		op := FileOperation{
			ID:           r.newID(),
			Type:         OperationMove,
			Source:       entry.Destination,
			Destination:  entry.Source,
			Size:         entry.FileSize,
			ExpectedHash: entry.ContentHash,
		}
		op.Warning = r.integrity(logger, entry)
		plan = append(plan, op)

		if entry.BackupPath != "" {
			plan = append(plan, FileOperation{
				ID:          r.newID(),
				Type:        OperationMove,
				Source:      entry.BackupPath,
				Destination: entry.Destination,
			})
		}
	}
	logger.Info("rollback planned", logging.Int("entries", len(log.Entries)), logging.Int("operations", len(plan)))
	return plan, nil
}

func (r *RollbackManager) integrity(logger *slog.Logger, entry journal.Entry) string {
	if _, err := os.Lstat(entry.Destination); err != nil {
		if os.IsNotExist(err) {
			return WarningSourceMissing
		}
		return ""
	}
	if entry.ContentHash == "" {
		return ""
	}
	hash, err := fileutil.HashFile(entry.Destination)
	if err != nil {
		logger.Debug("integrity hash failed", logging.String("path", entry.Destination), logging.Error(err))
		return ""
	}
	if hash == entry.ContentHash {
		return ""
	}
	logging.WarnWithContext(logger, "journaled file changed since it was organized", "rollback_hash_mismatch",
		logging.String("path", entry.Destination),
		logging.String("expected_hash", entry.ContentHash),
		logging.String("actual_hash", hash),
		logging.String(logging.FieldErrorHint, "the file was modified after it was moved"),
		logging.String(logging.FieldImpact, "rollback will move the modified content back"),
	)
	return WarningHashMismatch
}
