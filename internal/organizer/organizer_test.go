package organizer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"reelkeeper/internal/config"
	"reelkeeper/internal/fileutil"
	"reelkeeper/internal/journal"
	"reelkeeper/internal/media"
	"reelkeeper/internal/organizer"
	"reelkeeper/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func newPlanner(t *testing.T, root string, mutate func(*config.Library)) *organizer.Planner {
	t.Helper()
	lib := config.Default().Library
	if mutate != nil {
		mutate(&lib)
	}
	p, err := organizer.NewPlanner(root, lib, nil)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func newJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.New(filepath.Join(t.TempDir(), "journal"), nil)
	if err != nil {
		t.Fatalf("journal.New: %v", err)
	}
	return j
}

func newExecutor(t *testing.T, j *journal.Journal) *organizer.Executor {
	t.Helper()
	e, err := organizer.NewExecutor(j, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return e
}

func tvFile(path string, season, episode int, match *media.MatchResult) *media.ScannedFile {
	return &media.ScannedFile{
		Path:     path,
		Size:     1,
		Metadata: media.Metadata{Title: "Show", Season: season, Episode: episode},
		Status:   media.StatusMatched,
		Match:    match,
	}
}

func TestPlannerRendersLibraryLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "library")
	planner := newPlanner(t, root, nil)
	show := &media.MatchResult{ID: 1, Title: "Show: Origins", Year: 2013, MediaType: media.MediaTypeTV}
	movie := &media.MatchResult{ID: 2, Title: "Heat", Year: 1995, MediaType: media.MediaTypeMovie}
	double := tvFile("/in/Show.S01E01E02.mkv", 1, 1, show)
	double.Metadata.EpisodeEnd = 2

	groups := []*media.Group{
		{Title: "Show", Season: 1, Files: []*media.ScannedFile{
			tvFile("/in/Show.S01E03.mkv", 1, 3, show),
			tvFile("/in/Show.S01E03.srt", 1, 3, show),
			double,
		}, Match: show},
		{Title: "Heat", Files: []*media.ScannedFile{{Path: "/in/Heat.1995.mkv", Metadata: media.Metadata{Title: "Heat", Year: 1995}, Match: movie}}, Match: movie},
	}
	plan := planner.Plan(groups)

	want := []string{
		filepath.Join(root, "tv", "Show - Origins", "Season 01", "Show - Origins - S01E03.mkv"),
		filepath.Join(root, "tv", "Show - Origins", "Season 01", "Show - Origins - S01E03.srt"),
		filepath.Join(root, "tv", "Show - Origins", "Season 01", "Show - Origins - S01E01-E02.mkv"),
		filepath.Join(root, "movies", "Heat (1995)", "Heat (1995).mkv"),
	}
	if len(plan) != len(want) {
		t.Fatalf("expected %d operations, got %d: %+v", len(want), len(plan), plan)
	}
	for i, op := range plan {
		if op.Destination != want[i] {
			t.Errorf("op %d destination = %s, want %s", i, op.Destination, want[i])
		}
		if op.Type != organizer.OperationMove || op.ID == "" {
			t.Errorf("op %d malformed: %+v", i, op)
		}
	}
}

func TestPlannerSkipsUnmatchedAndEmpty(t *testing.T) {
	planner := newPlanner(t, filepath.Join(t.TempDir(), "library"), nil)
	if plan := planner.Plan(nil); len(plan) != 0 {
		t.Fatalf("expected empty plan, got %d", len(plan))
	}
	groups := []*media.Group{{Title: "Show", Files: []*media.ScannedFile{tvFile("/in/Show.S01E01.mkv", 1, 1, nil)}}}
	if plan := planner.Plan(groups); len(plan) != 0 {
		t.Fatalf("expected unmatched files excluded, got %+v", plan)
	}
}

func TestPlannerSuffixesCollidingDestinations(t *testing.T) {
	planner := newPlanner(t, filepath.Join(t.TempDir(), "library"), nil)
	match := &media.MatchResult{ID: 1, Title: "Show", MediaType: media.MediaTypeTV}
	groups := []*media.Group{{Title: "Show", Files: []*media.ScannedFile{
		tvFile("/in/a/Show.S01E01.mkv", 1, 1, match),
		tvFile("/in/b/Show.S01E01.mkv", 1, 1, match),
	}}}
	plan := planner.Plan(groups)
	if len(plan) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(plan))
	}
	if !strings.HasSuffix(plan[1].Destination, "Show - S01E01 (2).mkv") {
		t.Fatalf("expected numbered suffix, got %s", plan[1].Destination)
	}
}

func TestPlannerSkipsFilesAlreadyInPlace(t *testing.T) {
	root := filepath.Join(t.TempDir(), "library")
	planner := newPlanner(t, root, nil)
	match := &media.MatchResult{ID: 2, Title: "Heat", Year: 1995, MediaType: media.MediaTypeMovie}
	placed := filepath.Join(root, "movies", "Heat (1995)", "Heat (1995).mkv")
	groups := []*media.Group{{Title: "Heat", Files: []*media.ScannedFile{{Path: placed, Match: match}}}}
	if plan := planner.Plan(groups); len(plan) != 0 {
		t.Fatalf("expected in-place file skipped, got %+v", plan)
	}
}

func TestNewPlannerValidatesTemplates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Library)
	}{
		{name: "unknown placeholder", mutate: func(l *config.Library) { l.TVFileTemplate = "{title} {resolution}{ext}" }},
		{name: "unbalanced", mutate: func(l *config.Library) { l.MovieFolderTemplate = "{title" }},
		{name: "bad operation", mutate: func(l *config.Library) { l.Operation = "link" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := config.Default().Library
			tt.mutate(&lib)
			if _, err := organizer.NewPlanner("/library", lib, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := organizer.NewPlanner("relative/lib", config.Default().Library, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for relative root, got %v", err)
	}
}

func TestExecuteSkipsMissingSource(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	executor := newExecutor(t, j)
	first := filepath.Join(dir, "in", "one.mkv")
	writeFile(t, first, "one")
	plan := []organizer.FileOperation{
		{ID: "op-1", Type: organizer.OperationMove, Source: first, Destination: filepath.Join(dir, "lib", "one.mkv")},
		{ID: "op-2", Type: organizer.OperationMove, Source: filepath.Join(dir, "in", "gone.mkv"), Destination: filepath.Join(dir, "lib", "gone.mkv")},
	}

	result, err := executor.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.SuccessCount != 1 || result.SkippedCount != 1 || result.FailedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Details[1].Status != organizer.ItemSkipped || result.Details[1].Reason != organizer.ReasonSourceMissing {
		t.Fatalf("expected op-2 skipped for missing source, got %+v", result.Details[1])
	}
	entries, err := j.Load(result.LogID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].OperationID != "op-1" {
		t.Fatalf("expected exactly one journal entry for op-1, got %+v", entries)
	}
	if entries[0].ContentHash == "" {
		t.Fatal("expected content hash journaled")
	}
}

func TestExecuteBacksUpExistingDestination(t *testing.T) {
	dir := t.TempDir()
	executor := newExecutor(t, newJournal(t))
	src := filepath.Join(dir, "in", "new.mkv")
	dst := filepath.Join(dir, "lib", "movie.mkv")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	result, err := executor.Execute(context.Background(), []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationMove, Source: src, Destination: dst},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	backup := result.Details[0].BackupPath
	if !strings.HasPrefix(backup, dst+".bak-") {
		t.Fatalf("unexpected backup path %q", backup)
	}
	if readFile(t, backup) != "old" || readFile(t, dst) != "new" {
		t.Fatal("backup or destination content wrong")
	}
}

func TestExecuteCopyKeepsSource(t *testing.T) {
	dir := t.TempDir()
	executor := newExecutor(t, newJournal(t))
	src := filepath.Join(dir, "in", "a.mkv")
	dst := filepath.Join(dir, "lib", "deep", "a.mkv")
	writeFile(t, src, "payload")

	result, err := executor.Execute(context.Background(), []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationCopy, Source: src, Destination: dst},
	})
	if err != nil || result.SuccessCount != 1 {
		t.Fatalf("Execute: %+v %v", result, err)
	}
	if readFile(t, src) != "payload" || readFile(t, dst) != "payload" {
		t.Fatal("copy should leave both files")
	}
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	executor := newExecutor(t, newJournal(t))
	src := filepath.Join(dir, "in", "a.mkv")
	writeFile(t, src, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := executor.Execute(ctx, []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationMove, Source: src, Destination: filepath.Join(dir, "lib", "a.mkv")},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(result.Details) != 0 {
		t.Fatalf("expected no items processed, got %+v", result.Details)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("source should be untouched")
	}
}

func TestExecuteEscalatesJournalOpenFailure(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	j, err := journal.New(journalDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(journalDir); err != nil {
		t.Fatal(err)
	}
	writeFile(t, journalDir, "not a directory")
	src := filepath.Join(dir, "in", "a.mkv")
	writeFile(t, src, "x")

	_, err = newExecutor(t, j).Execute(context.Background(), []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationMove, Source: src, Destination: filepath.Join(dir, "lib", "a.mkv")},
	})
	if !errors.Is(err, services.ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("nothing should move without a journal")
	}
}

func TestExecuteAbortsWhenJournalWriteFails(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	executor := newExecutor(t, j)
	var plan []organizer.FileOperation
	for _, name := range []string{"a", "b", "c"} {
		src := filepath.Join(dir, "in", name+".mkv")
		writeFile(t, src, name)
		plan = append(plan, organizer.FileOperation{
			ID: "op-" + name, Type: organizer.OperationMove,
			Source: src, Destination: filepath.Join(dir, "lib", name+".mkv"),
		})
	}
	writes := 0
	defer journal.SetAppendForTests(func(f *os.File, line []byte) error {
		writes++
		if writes == 2 {
			return errors.New("disk full")
		}
		if _, err := f.Write(line); err != nil {
			return err
		}
		return f.Sync()
	})()

	result, err := executor.Execute(context.Background(), plan)
	if !errors.Is(err, services.ErrInfrastructure) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 || len(result.Details) != 2 {
		t.Fatalf("unexpected partial result: %+v", result)
	}
	if result.Details[1].Status != organizer.ItemFailed {
		t.Fatalf("expected op-b failed, got %+v", result.Details[1])
	}
	if readFile(t, plan[2].Source) != "c" {
		t.Fatal("op-c must not be attempted")
	}
	if _, err := os.Stat(plan[2].Destination); !os.IsNotExist(err) {
		t.Fatalf("op-c destination should not exist, stat err = %v", err)
	}
	entries, err := j.Load(result.LogID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].OperationID != "op-a" {
		t.Fatalf("expected only op-a journaled, got %+v", entries)
	}
}

func crossDeviceRename(src, dst string) error {
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EXDEV}
}

func TestExecuteCrossDeviceMoveRestoresBackupWhenSourceStays(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	src := filepath.Join(dir, "in", "new.mkv")
	dst := filepath.Join(dir, "lib", "movie.mkv")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")
	defer fileutil.SetFileOpsForTests(crossDeviceRename, func(path string) error {
		if path == src {
			return &os.PathError{Op: "remove", Path: path, Err: syscall.EACCES}
		}
		return os.Remove(path)
	})()

	result, err := newExecutor(t, j).Execute(context.Background(), []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationMove, Source: src, Destination: dst},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.FailedCount != 1 || result.Details[0].BackupPath != "" {
		t.Fatalf("expected failed item with backup restored, got %+v", result.Details[0])
	}
	if readFile(t, dst) != "old" || readFile(t, src) != "new" {
		t.Fatal("destination and source should be as before")
	}
	matches, _ := filepath.Glob(dst + ".bak-*")
	if len(matches) != 0 {
		t.Fatalf("backup left behind: %v", matches)
	}
	entries, err := j.Load(result.LogID)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty journal, got %+v %v", entries, err)
	}
}

func TestExecuteCrossDeviceMoveJournalsRetainedSourceAsCopy(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	src := filepath.Join(dir, "in", "new.mkv")
	dst := filepath.Join(dir, "lib", "movie.mkv")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")
	restore := fileutil.SetFileOpsForTests(crossDeviceRename, func(path string) error {
		return &os.PathError{Op: "remove", Path: path, Err: syscall.EACCES}
	})

	result, err := newExecutor(t, j).Execute(context.Background(), []organizer.FileOperation{
		{ID: "op", Type: organizer.OperationMove, Source: src, Destination: dst},
	})
	restore()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	item := result.Details[0]
	if item.Status != organizer.ItemCommitted || item.Reason != organizer.ReasonSourceRetained || item.BackupPath == "" {
		t.Fatalf("unexpected item %+v", item)
	}
	entries, err := j.Load(result.LogID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != string(organizer.OperationCopy) || entries[0].BackupPath != item.BackupPath {
		t.Fatalf("expected one copy entry with backup, got %+v", entries)
	}

	plan, err := organizer.NewRollbackManager(j, nil).Plan(context.Background(), result.LogID)
	if err != nil {
		t.Fatalf("rollback plan: %v", err)
	}
	if _, err := newExecutor(t, j).Execute(context.Background(), plan); err != nil {
		t.Fatalf("rollback execute: %v", err)
	}
	if readFile(t, dst) != "old" || readFile(t, src) != "new" {
		t.Fatal("rollback should restore the displaced destination")
	}
}

func TestExecuteRejectsDuplicateDestinations(t *testing.T) {
	executor := newExecutor(t, newJournal(t))
	_, err := executor.Execute(context.Background(), []organizer.FileOperation{
		{ID: "a", Type: organizer.OperationMove, Source: "/in/a", Destination: "/lib/x"},
		{ID: "b", Type: organizer.OperationMove, Source: "/in/b", Destination: "/lib/x"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRollbackRestoresOriginalLayout(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	executor := newExecutor(t, j)
	a := filepath.Join(dir, "in", "a.mkv")
	b := filepath.Join(dir, "in", "b.mkv")
	occupied := filepath.Join(dir, "lib", "b.mkv")
	writeFile(t, a, "A")
	writeFile(t, b, "B")
	writeFile(t, occupied, "previous")

	forward, err := executor.Execute(context.Background(), []organizer.FileOperation{
		{ID: "1", Type: organizer.OperationMove, Source: a, Destination: filepath.Join(dir, "lib", "a.mkv")},
		{ID: "2", Type: organizer.OperationMove, Source: b, Destination: occupied},
	})
	if err != nil || forward.SuccessCount != 2 {
		t.Fatalf("forward Execute: %+v %v", forward, err)
	}

	rollback := organizer.NewRollbackManager(j, nil)
	plan, err := rollback.Plan(context.Background(), forward.LogID)
	if err != nil {
		t.Fatalf("rollback Plan: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("expected 3 operations (two moves and a backup restore), got %+v", plan)
	}
	if plan[0].Source != occupied || plan[0].Destination != b {
		t.Fatalf("expected reverse order, got %+v", plan[0])
	}
	for _, op := range plan {
		if op.Warning != "" {
			t.Fatalf("unexpected warning on %+v", op)
		}
	}

	back, err := executor.Execute(context.Background(), plan)
	if err != nil || back.SuccessCount != 3 {
		t.Fatalf("rollback Execute: %+v %v", back, err)
	}
	if readFile(t, a) != "A" || readFile(t, b) != "B" || readFile(t, occupied) != "previous" {
		t.Fatal("rollback did not restore original content")
	}
	if back.LogID == forward.LogID {
		t.Fatal("rollback should write its own journal")
	}
}

func TestRollbackFlagsChangedAndMissingFiles(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(t)
	executor := newExecutor(t, j)
	a := filepath.Join(dir, "in", "a.mkv")
	b := filepath.Join(dir, "in", "b.mkv")
	writeFile(t, a, "A")
	writeFile(t, b, "B")
	libA := filepath.Join(dir, "lib", "a.mkv")
	libB := filepath.Join(dir, "lib", "b.mkv")
	forward, err := executor.Execute(context.Background(), []organizer.FileOperation{
		{ID: "1", Type: organizer.OperationMove, Source: a, Destination: libA},
		{ID: "2", Type: organizer.OperationMove, Source: b, Destination: libB},
	})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, libA, "edited")
	if err := os.Remove(libB); err != nil {
		t.Fatal(err)
	}

	plan, err := organizer.NewRollbackManager(j, nil).Plan(context.Background(), forward.LogID)
	if err != nil {
		t.Fatal(err)
	}
	warnings := map[string]string{}
	for _, op := range plan {
		warnings[op.Source] = op.Warning
	}
	if warnings[libA] != organizer.WarningHashMismatch {
		t.Fatalf("expected hash mismatch warning, got %q", warnings[libA])
	}
	if warnings[libB] != organizer.WarningSourceMissing {
		t.Fatalf("expected missing warning, got %q", warnings[libB])
	}

	back, err := executor.Execute(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if back.SuccessCount != 1 || back.SkippedCount != 1 || back.FailedCount != 0 {
		t.Fatalf("expected one restored and one skipped, got %+v", back)
	}
}

func TestRollbackUnknownLog(t *testing.T) {
	_, err := organizer.NewRollbackManager(newJournal(t), nil).Plan(context.Background(), "20200101T000000.000000000Z")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
