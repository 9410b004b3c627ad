package graph

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (*EventLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.jsonl")
	log, err := OpenOrCreate(path)
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	return log, path
}

func TestOpenOrCreateWritesMarker(t *testing.T) {
	_, path := newTestLog(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	first, _ := firstLineOf(data)
	if len(first) == 0 {
		t.Fatal("expected a marker line")
	}
}

func TestOpenOrCreateRejectsBadMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenOrCreate(path); err == nil {
		t.Fatal("expected marker mismatch error")
	}
}

func TestAppendAndReadAll(t *testing.T) {
	log, _ := newTestLog(t)

	e := Entity{ID: "e1", Name: "Alpha", Type: "project", CreatedAt: time.Now().UTC()}
	if err := log.Append(NewEntityUpsertEvent(e, e.CreatedAt)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, warnings, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(events) != 1 || events[0].Entity == nil || events[0].Entity.Name != "Alpha" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReadTailSkipsEarlierLines(t *testing.T) {
	log, _ := newTestLog(t)

	for i := 0; i < 3; i++ {
		e := Entity{ID: string(rune('a' + i)), Name: string(rune('A' + i)), Type: "t", CreatedAt: time.Now().UTC()}
		if err := log.Append(NewEntityUpsertEvent(e, e.CreatedAt)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	lineCount, err := log.LineCount()
	if err != nil {
		t.Fatalf("LineCount: %v", err)
	}
	if lineCount != 4 { // marker + 3 events
		t.Fatalf("LineCount = %d, want 4", lineCount)
	}

	tail, _, err := log.ReadTail(3)
	if err != nil {
		t.Fatalf("ReadTail: %v", err)
	}
	if len(tail) != 1 {
		t.Fatalf("expected 1 tail event, got %d", len(tail))
	}
}

func TestMalformedLineBecomesWarningNotError(t *testing.T) {
	log, path := newTestLog(t)
	e := Entity{ID: "e1", Name: "Alpha", Type: "project", CreatedAt: time.Now().UTC()}
	if err := log.Append(NewEntityUpsertEvent(e, e.CreatedAt)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	f.Close()

	events, warnings, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 valid event, got %d", len(events))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
}
