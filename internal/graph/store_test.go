package graph

import (
	"testing"

	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestUpsertEntityThenResolveByName(t *testing.T) {
	s := newTestStore(t)

	e, err := s.UpsertEntity("Widget Service", "component", nil)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	resolved, err := s.resolveEntity("widget service")
	if err != nil {
		t.Fatalf("resolveEntity by name: %v", err)
	}
	if resolved.ID != e.ID {
		t.Errorf("resolved id = %q, want %q", resolved.ID, e.ID)
	}
}

func TestUpsertEntitySameNameMerges(t *testing.T) {
	s := newTestStore(t)

	first, err := s.UpsertEntity("Widget Service", "component", nil)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	second, err := s.UpsertEntity("widget service", "component-v2", map[string]interface{}{"owner": "team-a"})
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected merge to keep the same id, got %q vs %q", first.ID, second.ID)
	}
	if second.Type != "component-v2" {
		t.Errorf("Type = %q, want component-v2", second.Type)
	}
}

func TestAddObservationRequiresExistingEntity(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddObservation("does-not-exist", "text", SourceManual, "")
	if bankerr.CodeOf(err) != bankerr.EntityNotFound {
		t.Fatalf("expected EntityNotFound, got %v", err)
	}
}

func TestLinkAndUnlinkEntities(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)

	if _, err := s.LinkEntities(a.Name, b.Name, "depends_on"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
	entities, _, relations := s.Snapshot()
	if len(entities) != 2 || len(relations) != 1 {
		t.Fatalf("expected 2 entities / 1 relation, got %d/%d", len(entities), len(relations))
	}

	if err := s.UnlinkEntities(a.Name, b.Name, "depends_on"); err != nil {
		t.Fatalf("UnlinkEntities: %v", err)
	}
	_, _, relations = s.Snapshot()
	if len(relations) != 0 {
		t.Fatalf("expected relation removed, got %d", len(relations))
	}
}

func TestUnlinkEntitiesMissingRelationFails(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)

	err := s.UnlinkEntities(a.Name, b.Name, "depends_on")
	if bankerr.CodeOf(err) != bankerr.RelationNotFound {
		t.Fatalf("expected RelationNotFound, got %v", err)
	}
}

func TestDeleteObservationMissingIDFails(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)

	err := s.DeleteObservation(a.ID, "does-not-exist")
	if bankerr.CodeOf(err) != bankerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDeleteEntityCascadesThroughStore(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)
	if _, err := s.AddObservation(a.ID, "note", SourceManual, ""); err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if _, err := s.LinkEntities(a.ID, b.ID, "rel"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}

	if err := s.DeleteEntity(a.ID); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}

	entities, observations, relations := s.Snapshot()
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity remaining, got %d", len(entities))
	}
	if len(observations) != 0 {
		t.Fatalf("expected observations cascaded away, got %d", len(observations))
	}
	if len(relations) != 0 {
		t.Fatalf("expected relations cascaded away, got %d", len(relations))
	}
}

func TestSearchRanksExactNameMatchFirst(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpsertEntity("Widget", "component", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if _, err := s.UpsertEntity("Widget Factory", "component", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	results := s.Search(SearchQuery{Text: "Widget"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entity.Name != "Widget" {
		t.Errorf("expected exact match first, got %q", results[0].Entity.Name)
	}
}

func TestSearchMatchesEntityTypeSubstring(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpsertEntity("Zephyr", "microservice", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if _, err := s.UpsertEntity("Borealis", "database", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	results := s.Search(SearchQuery{Text: "microservice"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result matched by type, got %d", len(results))
	}
	if results[0].Entity.Name != "Zephyr" {
		t.Errorf("expected Zephyr matched by type substring, got %q", results[0].Entity.Name)
	}
}

func TestSearchExpandsNeighborhood(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)
	c, _ := s.UpsertEntity("C", "t", nil)
	if _, err := s.LinkEntities(a.ID, b.ID, "rel"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
	if _, err := s.LinkEntities(b.ID, c.ID, "rel"); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}

	results := s.Search(SearchQuery{Text: "A", NeighborhoodDepth: 2})
	if len(results) != 1 {
		t.Fatalf("expected 1 matched entity, got %d", len(results))
	}
	if len(results[0].Relations) != 2 {
		t.Fatalf("expected depth-2 expansion to reach both relations, got %d", len(results[0].Relations))
	}
}

func TestOpenNodesResolvesByIDOrName(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.UpsertEntity("A", "t", nil)
	b, _ := s.UpsertEntity("B", "t", nil)

	results := s.OpenNodes([]string{a.ID, "b", "missing"})
	if len(results) != 2 {
		t.Fatalf("expected 2 resolved nodes, got %d", len(results))
	}
	if results[0].Entity.ID != a.ID || results[1].Entity.ID != b.ID {
		t.Fatalf("unexpected resolution order: %+v", results)
	}
}

func TestStoreReopenReplaysFromDisk(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.UpsertEntity("A", "t", nil); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entities, _, _ := reopened.Snapshot()
	if len(entities) != 1 || entities[0].Name != "A" {
		t.Fatalf("expected replayed entity A, got %+v", entities)
	}
}
