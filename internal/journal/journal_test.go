package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelkeeper/internal/services"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "journal"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

func TestAppendAndLoadPreservesOrder(t *testing.T) {
	j := newTestJournal(t)
	w, err := j.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		entry := Entry{
			OperationID: name,
			Action:      "move",
			Source:      "/in/" + name,
			Destination: "/lib/" + name,
			FileSize:    int64(i + 1),
		}
		if err := w.Append(entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := j.Load(w.ID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		if entries[i].OperationID != want {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].OperationID, want)
		}
		if entries[i].Timestamp.IsZero() {
			t.Fatalf("entry %d missing timestamp", i)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	j := newTestJournal(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		j.now = func() time.Time { return at }
		w, err := j.Open()
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		ids = append(ids, w.ID())
		_ = w.Close()
	}
	if err := os.WriteFile(filepath.Join(j.Dir(), "notes.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := j.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{ids[2], ids[1], ids[0]}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List = %v, want %v", got, want)
		}
	}
	if ids[0] != "20260301T120000.000000000Z" {
		t.Fatalf("unexpected id format %q", ids[0])
	}
}

func TestOpenSameInstantGetsDistinctIDs(t *testing.T) {
	j := newTestJournal(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }
	a, err := j.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := j.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, both %s", a.ID())
	}
}

func TestGetLogByIDNotFound(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.GetLogByID("20200101T000000.000000000Z")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetLogByIDMalformedIDIsNotFound(t *testing.T) {
	j := newTestJournal(t)
	for _, id := range []string{"../etc/passwd", "does-not-exist", "2024-01-01", ""} {
		_, err := j.GetLogByID(id)
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("GetLogByID(%q): expected ErrNotFound, got %v", id, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("GetLogByID(%q): expected parse failure to stay reachable, got %v", id, err)
		}
	}
	if _, err := j.Load("typo"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Load: expected ErrNotFound, got %v", err)
	}
}

func TestSecondWriterIsRejected(t *testing.T) {
	j := newTestJournal(t)
	w, err := j.Open()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Reopen(w.ID()); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected lock contention, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	again, err := j.Reopen(w.ID())
	if err != nil {
		t.Fatalf("Reopen after close: %v", err)
	}
	_ = again.Close()
}

func TestLoadIgnoresTornFinalLine(t *testing.T) {
	j := newTestJournal(t)
	id := "20260301T120000.000000000Z"
	content := `{"operation_id":"1","action":"move","source":"/a","destination":"/b","file_size":1}` + "\n" + `{"operation_id":"2","act`
	if err := os.WriteFile(filepath.Join(j.Dir(), id+".jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := j.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].OperationID != "1" {
		t.Fatalf("expected only the complete entry, got %+v", entries)
	}
}

func TestLoadRejectsCorruptMiddleLine(t *testing.T) {
	j := newTestJournal(t)
	id := "20260301T120000.000000000Z"
	content := "garbage\n" + `{"operation_id":"2","action":"move","source":"/a","destination":"/b","file_size":1}` + "\n"
	if err := os.WriteFile(filepath.Join(j.Dir(), id+".jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Load(id); !errors.Is(err, services.ErrDataProcessing) {
		t.Fatalf("expected ErrDataProcessing, got %v", err)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	j := newTestJournal(t)
	w, err := j.Open()
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Close()
	if err := w.Append(Entry{OperationID: "x"}); err == nil {
		t.Fatal("expected error after close")
	}
}
