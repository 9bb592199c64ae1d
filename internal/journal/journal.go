// Package journal records committed file operations as append-only JSONL logs.
//
// Each execution writes one log file named after its UTC creation time. A
// single writer holds an exclusive flock on the log while appending, and every
// entry is fsynced before Append returns, so a crash never loses an entry
// for a file that has already moved.
package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reelkeeper/internal/logging"
	"reelkeeper/internal/services"
)

// IDLayout formats log ids. Lexical order equals chronological order.
const IDLayout = "20060102T150405.000000000Z"

const fileExt = ".jsonl"

// Entry is one committed operation.
type Entry struct {
	OperationID string    `json:"operation_id"`
	Timestamp   time.Time `json:"timestamp_utc"`
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	ContentHash string    `json:"content_hash,omitempty"`
	FileSize    int64     `json:"file_size"`
	BackupPath  string    `json:"backup_path,omitempty"`
}

// Log is a loaded journal.
type Log struct {
	ID        string    `json:"log_id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// Summary describes a journal without its entries.
type Summary struct {
	ID        string    `json:"log_id"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
	Size      int64     `json:"size_bytes"`
}

// Journal manages the log directory.
type Journal struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// New ensures dir exists.
func New(dir string, logger *slog.Logger) (*Journal, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "journal", "open dir", "journal directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, "journal", "open dir", "cannot create journal directory", err)
	}
	return &Journal{dir: dir, logger: logging.NewComponentLogger(logger, "journal"), now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

// ParseID validates id and returns its creation time.
func ParseID(id string) (time.Time, error) {
	t, err := time.Parse(IDLayout, id)
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrValidation, "journal", "parse id", fmt.Sprintf("invalid log id %q", id), err)
	}
	return t, nil
}

// lookupID resolves id for a read. A malformed id names no log, so it is
// reported as services.ErrNotFound with the parse failure still reachable.
func lookupID(op, id string) (time.Time, error) {
	t, err := ParseID(id)
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrNotFound, "journal", op, fmt.Sprintf("log %s not found", id), err)
	}
	return t, nil
}

func (j *Journal) path(id string) string {
	return filepath.Join(j.dir, id+fileExt)
}

// Open creates a new log and returns its exclusive writer.
func (j *Journal) Open() (*Writer, error) {
	created := j.now().UTC()
	for attempt := 0; attempt < 100; attempt++ {
		id := created.Format(IDLayout)
		f, err := os.OpenFile(j.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
		if errors.Is(err, os.ErrExist) {
			created = created.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return nil, services.Wrap(services.ErrInfrastructure, "journal", "open", "cannot create journal file", err)
		}
		w, err := newWriter(id, j.path(id), f)
		if err != nil {
			return nil, err
		}
		j.logger.Debug("journal opened", logging.String(logging.FieldLogID, id))
		return w, nil
	}
	return nil, services.Wrap(services.ErrInfrastructure, "journal", "open", "exhausted journal id slots", nil)
}

// Reopen continues appending to an existing log. It fails with
// services.ErrTransient while another writer holds the log.
func (j *Journal) Reopen(id string) (*Writer, error) {
	if _, err := lookupID("reopen", id); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(j.path(id), os.O_WRONLY|os.O_APPEND, 0o644)
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "journal", "reopen", fmt.Sprintf("log %s not found", id), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, "journal", "reopen", "cannot open journal file", err)
	}
	return newWriter(id, j.path(id), f)
}

// Writer appends entries to one log.
type Writer struct {
	mu     sync.Mutex
	id     string
	file   *os.File
	lock   *flock.Flock
	count  int
	closed bool
}

func newWriter(id, path string, f *os.File) (*Writer, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		_ = f.Close()
		return nil, services.Wrap(services.ErrInfrastructure, "journal", "lock", "cannot lock journal", err)
	}
	if !ok {
		_ = f.Close()
		return nil, services.Wrap(services.ErrTransient, "journal", "lock", fmt.Sprintf("log %s is held by another writer", id), nil)
	}
	return &Writer{id: id, file: f, lock: lock}, nil
}

// ID returns the log id.
func (w *Writer) ID() string { return w.id }

// Count returns the number of entries appended through this writer.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Append writes entry as one line and fsyncs before returning.
func (w *Writer) Append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return services.Wrap(services.ErrApplication, "journal", "append", "writer closed", nil)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return services.Wrap(services.ErrDataProcessing, "journal", "append", "encode entry", err)
	}
	line = append(line, '\n')
	if err := appendLine(w.file, line); err != nil {
		return services.Wrap(services.ErrInfrastructure, "journal", "append", "write entry", err)
	}
	w.count++
	return nil
}

// Close releases the file and the lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.file.Close()
	if unlockErr := w.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

var appendLine = func(f *os.File, line []byte) error {
	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}

// Load returns the entries of id in write order. A torn final line from an
// interrupted write is ignored.
func (j *Journal) Load(id string) ([]Entry, error) {
	if _, err := lookupID("load", id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(j.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "journal", "load", fmt.Sprintf("log %s not found", id), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, "journal", "load", "read journal", err)
	}
	return j.decode(id, data)
}

func (j *Journal) decode(id string, data []byte) ([]Entry, error) {
	lines := bytes.Split(data, []byte("\n"))
	torn := len(data) > 0 && data[len(data)-1] != '\n'
	var entries []Entry
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			if torn && i == len(lines)-1 {
				logging.WarnWithContext(j.logger, "ignoring torn journal line", "journal_torn_line",
					logging.String(logging.FieldLogID, id),
					logging.Int("line", i+1),
					logging.String(logging.FieldErrorHint, "a previous run was interrupted mid-write"),
					logging.String(logging.FieldImpact, "the torn entry is not rolled back"),
				)
				break
			}
			return nil, services.Wrap(services.ErrDataProcessing, "journal", "load",
				fmt.Sprintf("log %s line %d is not valid JSON", id, i+1), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetLogByID loads one log with metadata.
func (j *Journal) GetLogByID(id string) (Log, error) {
	created, err := lookupID("get", id)
	if err != nil {
		return Log{}, err
	}
	entries, err := j.Load(id)
	if err != nil {
		return Log{}, err
	}
	return Log{ID: id, Path: j.path(id), CreatedAt: created, Entries: entries}, nil
}

// List returns log ids newest first. Files whose names are not log ids are
// ignored.
func (j *Journal) List() ([]string, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, "journal", "list", "read journal directory", err)
	}
	ids := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		id := strings.TrimSuffix(de.Name(), fileExt)
		if _, err := time.Parse(IDLayout, id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Summaries describes every log, newest first. Unreadable logs are skipped.
func (j *Journal) Summaries() ([]Summary, error) {
	ids, err := j.List()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		created, _ := ParseID(id)
		entries, err := j.Load(id)
		if err != nil {
			j.logger.Debug("skipping unreadable journal", logging.String(logging.FieldLogID, id), logging.Error(err))
			continue
		}
		var size int64
		if info, err := os.Stat(j.path(id)); err == nil {
			size = info.Size()
		}
		out = append(out, Summary{ID: id, CreatedAt: created, Entries: len(entries), Size: size})
	}
	return out, nil
}
