package graph

import (
	"os"
	"testing"

	"github.com/madeindigio/memory-bank-mcp/internal/store"
)

func TestCompactPreservesReadableState(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)
	if _, err := s.AddObservation(a.ID, "note", SourceManual, ""); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if _, err := s.LinkEntities(a.ID, b.ID, "rel"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
	// churn: add then remove a relation, so compaction must not resurrect it
	if _, err := s.LinkEntities(b.ID, a.ID, "reverse"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
	if err := s.UnlinkEntities(b.ID, a.ID, "reverse"); err != nil {
		t.Fatalf("UnlinkEntities: %v", err)
	}

	beforeEntities, beforeObs, beforeRels := s.Snapshot()

	result, err := s.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if result.EventsAfter >= result.EventsBefore {
		t.Errorf("expected compaction to shrink the log: before=%d after=%d", result.EventsBefore, result.EventsAfter)
	}

	afterEntities, afterObs, afterRels := s.Snapshot()
	if len(afterEntities) != len(beforeEntities) || len(afterObs) != len(beforeObs) || len(afterRels) != len(beforeRels) {
		t.Fatalf("compaction changed visible state: before=%d/%d/%d after=%d/%d/%d",
			len(beforeEntities), len(beforeObs), len(beforeRels),
			len(afterEntities), len(afterObs), len(afterRels))
	}
}

func TestCompactThenReopenMatches(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)
	if _, err := s.LinkEntities(a.ID, b.ID, "rel"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
	if _, err := s.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entities, _, relations := reopened.Snapshot()
	if len(entities) != 2 || len(relations) != 1 {
		t.Fatalf("expected 2 entities / 1 relation after reopen, got %d/%d", len(entities), len(relations))
	}
}

func TestRebuildMatchesExistingState(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpsertEntity("A", "t", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if _, err := s.UpsertEntity("B", "t", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	before, _, _ := s.Snapshot()
	if _, err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	after, _, _ := s.Snapshot()

	if len(before) != len(after) {
		t.Fatalf("rebuild changed entity count: before=%d after=%d", len(before), len(after))
	}
}

func TestRebuildTwiceIsByteIdentical(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.UpsertEntity("A", "t", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if _, err := s.UpsertEntity("B", "t", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	if _, err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild (1): %v", err)
	}
	snapshot1, err := os.ReadFile(store.SnapshotPath(root))
	if err != nil {
		t.Fatalf("read snapshot (1): %v", err)
	}
	index1, err := os.ReadFile(store.IndexPath(root))
	if err != nil {
		t.Fatalf("read index (1): %v", err)
	}

	if _, err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild (2): %v", err)
	}
	snapshot2, err := os.ReadFile(store.SnapshotPath(root))
	if err != nil {
		t.Fatalf("read snapshot (2): %v", err)
	}
	index2, err := os.ReadFile(store.IndexPath(root))
	if err != nil {
		t.Fatalf("read index (2): %v", err)
	}

	if string(snapshot1) != string(snapshot2) {
		t.Errorf("snapshot file differs across back-to-back Rebuild() calls:\n-- first --\n%s\n-- second --\n%s", snapshot1, snapshot2)
	}
	if string(index1) != string(index2) {
		t.Errorf("index file differs across back-to-back Rebuild() calls:\n-- first --\n%s\n-- second --\n%s", index1, index2)
	}
}
