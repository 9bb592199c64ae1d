package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelkeeper/internal/fileutil"
	"reelkeeper/internal/journal"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/services"
)

// backupLayout is appended to displaced destinations.
const backupLayout = "20060102T150405.000000000Z"

// Executor applies plans in order and journals every committed mutation.
type Executor struct {
	journal *journal.Journal
	logger  *slog.Logger
	now     func() time.Time
}

func NewExecutor(j *journal.Journal, logger *slog.Logger) (*Executor, error) {
	if j == nil {
		return nil, services.Wrap(services.ErrConfiguration, "organizing", "new executor", "journal is required", nil)
	}
	return &Executor{journal: j, logger: logging.NewComponentLogger(logger, "executor"), now: time.Now}, nil
}

// Execute applies plan. Per-item filesystem failures are recorded and the
// batch continues. A journal failure aborts with services.ErrInfrastructure
// and the partial result. Cancellation is checked between items.
func (e *Executor) Execute(ctx context.Context, plan []FileOperation) (Result, error) {
	var result Result
	if len(plan) == 0 {
		return result, nil
	}
	if err := ValidatePlan(plan, e.logger); err != nil {
		return result, err
	}
	writer, err := e.journal.Open()
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			e.logger.Debug("journal close failed", logging.Error(cerr))
		}
	}()
	result.LogID = writer.ID()
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldLogID, result.LogID))
	logger.Info("executing plan", logging.Int("operations", len(plan)))

	for _, op := range plan {
		if err := ctx.Err(); err != nil {
			logger.Info("execution cancelled", logging.Int("remaining", len(plan)-len(result.Details)))
			return result, err
		}
		item, entry := e.apply(logger, op)
		if entry != nil {
			if err := writer.Append(*entry); err != nil {
				item.Status = ItemFailed
				item.Error = err.Error()
				result.record(item)
				logging.ErrorWithContext(logger, "journal append failed; aborting batch", "journal_write_failed",
					logging.String("source", op.Source),
					logging.String("destination", op.Destination),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the file moved but is not journaled; check the journal directory"),
				)
				return result, services.Wrap(services.ErrInfrastructure, "organizing", "journal append",
					fmt.Sprintf("cannot journal operation %s", op.ID), err)
			}
		}
		result.record(item)
	}

	logger.Info("plan executed",
		logging.Int("committed", result.SuccessCount),
		logging.Int("skipped", result.SkippedCount),
		logging.Int("failed", result.FailedCount),
	)
	return result, nil
}

// apply performs one operation and returns the journal entry to write when
// the mutation happened.
func (e *Executor) apply(logger *slog.Logger, op FileOperation) (ItemResult, *journal.Entry) {
	item := ItemResult{Operation: op}

	if filepath.Clean(op.Source) == filepath.Clean(op.Destination) {
		item.Status, item.Reason = ItemSkipped, ReasonAlreadyInPlace
		return item, nil
	}
	info, err := os.Lstat(op.Source)
	if err != nil {
		if os.IsNotExist(err) {
			item.Status, item.Reason = ItemSkipped, ReasonSourceMissing
			logger.Info("source missing; skipping", logging.String("source", op.Source))
			return item, nil
		}
		return e.fail(logger, item, "stat source", err), nil
	}
	if info.IsDir() {
		return e.fail(logger, item, "stat source", fmt.Errorf("%s is a directory", op.Source)), nil
	}

	if err := fileutil.EnsureParent(op.Destination); err != nil {
		return e.fail(logger, item, "create parent", err), nil
	}

	exists, err := fileutil.Exists(op.Destination)
	if err != nil {
		return e.fail(logger, item, "stat destination", err), nil
	}
	if exists {
		backup := op.Destination + ".bak-" + e.now().UTC().Format(backupLayout)
		if err := os.Rename(op.Destination, backup); err != nil {
			return e.fail(logger, item, "backup destination", err), nil
		}
		item.BackupPath = backup
		logger.Info("destination backed up", logging.String("destination", op.Destination), logging.String("backup", backup))
	}

	var hash string
	action := op.Type
	switch op.Type {
	case OperationCopy:
		hash, err = fileutil.CopyFileVerified(op.Source, op.Destination)
	default:
		var moved fileutil.MoveResult
		moved, err = fileutil.MoveFile(op.Source, op.Destination)
		hash = moved.Hash
		if moved.SourceRetained {
			// dst holds a verified copy that could not be withdrawn
			logging.WarnWithContext(logger, "move degraded to copy", "move_source_retained",
				logging.String("source", op.Source),
				logging.String("destination", op.Destination),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the source directory"),
				logging.String(logging.FieldImpact, "source left in place; journaled as a copy"),
			)
			action, err = OperationCopy, nil
			item.Reason = ReasonSourceRetained
		}
	}
	if err != nil {
		if e.restoreBackup(logger, item) {
			item.BackupPath = ""
		}
		return e.fail(logger, item, string(op.Type), err), nil
	}
	if hash == "" {
		if hash, err = fileutil.HashFile(op.Destination); err != nil {
			logger.Debug("hash after move failed", logging.String("destination", op.Destination), logging.Error(err))
			hash = ""
		}
	}
	item.Status = ItemCommitted
	item.ContentHash = hash
	entry := &journal.Entry{
		OperationID: op.ID,
		Timestamp:   e.now().UTC(),
		Action:      string(action),
		Source:      op.Source,
		Destination: op.Destination,
		ContentHash: hash,
		FileSize:    info.Size(),
		BackupPath:  item.BackupPath,
	}
	logger.Debug("operation committed",
		logging.String("source", op.Source),
		logging.String("destination", op.Destination),
	)
	return item, entry
}

func (e *Executor) fail(logger *slog.Logger, item ItemResult, step string, err error) ItemResult {
	item.Status = ItemFailed
	item.Error = err.Error()
	logging.WarnWithContext(logger, "operation failed", "operation_failed",
		logging.String("step", step),
		logging.String("source", item.Operation.Source),
		logging.String("destination", item.Operation.Destination),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, errorHint(err)),
		logging.String(logging.FieldImpact, "file left in place; batch continues"),
	)
	return item
}

// restoreBackup puts a displaced destination back after a failed mutation.
func (e *Executor) restoreBackup(logger *slog.Logger, item ItemResult) bool {
	if item.BackupPath == "" {
		return false
	}
	if exists, _ := fileutil.Exists(item.Operation.Destination); exists {
		return false
	}
	if err := os.Rename(item.BackupPath, item.Operation.Destination); err != nil {
		logger.Debug("backup restore failed", logging.String("backup", item.BackupPath), logging.Error(err))
		return false
	}
	return true
}
