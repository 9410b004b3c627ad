package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	ds, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ds
}

func TestOpenSeedsCoreDocuments(t *testing.T) {
	ds := newTestStore(t)
	names, err := ds.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, doc := range CoreDocuments() {
		found := false
		for _, n := range names {
			if n == doc {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected seeded document %q, got %v", doc, names)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ds := newTestStore(t)
	etag, err := ds.Write(DocProgress, []byte("hello"), "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	content, readTag, err := ds.Read(DocProgress)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, want %q", content, "hello")
	}
	if readTag != etag {
		t.Errorf("etag mismatch: write=%s read=%s", etag, readTag)
	}
}

func TestETagConflict(t *testing.T) {
	ds := newTestStore(t)

	_, etagA, err := ds.Read(DocProgress)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if _, err := ds.Write(DocProgress, []byte("b"), ""); err != nil {
		t.Fatalf("Write b: %v", err)
	}

	_, err = ds.Write(DocProgress, []byte("c"), etagA)
	if bankerr.CodeOf(err) != bankerr.ETagConflict {
		t.Fatalf("expected ETagConflict, got %v", err)
	}

	content, _, err := ds.Read(DocProgress)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(content) != "b" {
		t.Errorf("file content = %q, want %q (conflict write must not apply)", content, "b")
	}
}

func TestReadMissingFile(t *testing.T) {
	ds := newTestStore(t)
	_, _, err := ds.Read("does-not-exist.md")
	if bankerr.CodeOf(err) != bankerr.FileNotFound {
		t.Fatalf("expected FileNotFound, got %v", err)
	}
}

func TestValidateFilenameRejectsTraversal(t *testing.T) {
	ds := newTestStore(t)
	_, _, err := ds.Read("../escape.md")
	if bankerr.CodeOf(err) != bankerr.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	_, err = ds.Write(filepath.Join("sub", "x.md"), []byte("x"), "")
	if bankerr.CodeOf(err) != bankerr.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestBatchReadWrite(t *testing.T) {
	ds := newTestStore(t)

	writes := ds.BatchWrite([]WriteRequest{
		{Filename: DocProgress, Content: []byte("p1")},
		{Filename: DocDecisionLog, Content: []byte("d1")},
	}, false)
	for name, res := range writes {
		if res.Err != nil {
			t.Fatalf("batch write %s: %v", name, res.Err)
		}
	}

	reads := ds.BatchRead([]string{DocProgress, DocDecisionLog, "missing.md"})
	if string(reads[DocProgress].Content) != "p1" {
		t.Errorf("progress content = %q", reads[DocProgress].Content)
	}
	if bankerr.CodeOf(reads["missing.md"].Err) != bankerr.FileNotFound {
		t.Errorf("expected FileNotFound for missing.md, got %v", reads["missing.md"].Err)
	}
}

func TestBatchWriteStopOnError(t *testing.T) {
	ds := newTestStore(t)
	_, etag, err := ds.Read(DocProgress)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := ds.Write(DocProgress, []byte("changed"), ""); err != nil {
		t.Fatalf("Write: %v", err)
	}

	results := ds.BatchWrite([]WriteRequest{
		{Filename: DocProgress, Content: []byte("stale"), IfMatch: etag}, // will conflict
		{Filename: DocDecisionLog, Content: []byte("should not run")},
	}, true)

	if _, ok := results[DocDecisionLog]; ok {
		t.Errorf("expected batch to stop before writing %s", DocDecisionLog)
	}
	if bankerr.CodeOf(results[DocProgress].Err) != bankerr.ETagConflict {
		t.Errorf("expected ETagConflict, got %v", results[DocProgress].Err)
	}
}

func TestMigrateFileNamingIsIdempotent(t *testing.T) {
	ds := newTestStore(t)

	// Simulate a pre-migration store: only the legacy filename exists.
	canonicalPath := filepath.Join(ds.Root(), DocProductContext)
	if err := os.Remove(canonicalPath); err != nil {
		t.Fatalf("remove canonical file: %v", err)
	}
	legacyPath := filepath.Join(ds.Root(), "productContext.md")
	if err := WriteAtomic(legacyPath, []byte("legacy"), 0o644); err != nil {
		t.Fatalf("seed legacy file: %v", err)
	}

	renamed, err := ds.MigrateFileNaming()
	if err != nil {
		t.Fatalf("MigrateFileNaming: %v", err)
	}
	if len(renamed) != 1 || renamed[0] != DocProductContext {
		t.Fatalf("expected %v renamed, got %v", []string{DocProductContext}, renamed)
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Errorf("legacy file should no longer exist, stat err = %v", err)
	}

	renamedAgain, err := ds.MigrateFileNaming()
	if err != nil {
		t.Fatalf("second MigrateFileNaming: %v", err)
	}
	if len(renamedAgain) != 0 {
		t.Errorf("expected idempotent second run, renamed %v", renamedAgain)
	}
}
