package mcp_tools

import (
	"strings"
	"testing"
)

func TestGraphUpsertLinkAndSearch(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})

	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "auth-service", EntityType: "component"})
	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "billing-service", EntityType: "component"})
	callTool(t, tm.graphLinkEntitiesHandler, GraphLinkEntitiesInput{From: "auth-service", To: "billing-service", RelationType: "calls"})
	callTool(t, tm.graphAddObservationHandler, GraphAddObservationInput{Entity: "auth-service", Text: "validates JWTs"})

	out := callTool(t, tm.graphSearchHandler, GraphSearchInput{Query: "auth"})
	if !strings.Contains(out, "auth-service") {
		t.Fatalf("graph_search result = %q, want auth-service", out)
	}
}

func TestGraphSearchEmptySuggestsSimilarNames(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "auth-service", EntityType: "component"})

	out := callTool(t, tm.graphSearchHandler, GraphSearchInput{Query: "atuh-service"})
	if !strings.Contains(out, "did_you_mean") || !strings.Contains(out, "auth-service") {
		t.Fatalf("graph_search miss result = %q, want auth-service suggested under did_you_mean", out)
	}
}

func TestGraphDeleteEntityCascadesRelations(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "a", EntityType: "x"})
	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "b", EntityType: "x"})
	callTool(t, tm.graphLinkEntitiesHandler, GraphLinkEntitiesInput{From: "a", To: "b", RelationType: "uses"})

	callTool(t, tm.graphDeleteEntityHandler, GraphDeleteEntityInput{Entity: "a"})

	out := callTool(t, tm.graphOpenNodesHandler, GraphOpenNodesInput{Names: []string{"b"}})
	if strings.Contains(out, "uses") {
		t.Fatalf("graph_open_nodes result = %q, want the relation to a deleted entity gone", out)
	}
}

func TestGraphCompactAndRebuildPreserveState(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.graphUpsertEntityHandler, GraphUpsertEntityInput{Name: "widget", EntityType: "component"})

	callTool(t, tm.graphCompactHandler, GraphCompactInput{})
	out := callTool(t, tm.graphSearchHandler, GraphSearchInput{Query: "widget"})
	if !strings.Contains(out, "widget") {
		t.Fatalf("graph_search after compact = %q, want widget still present", out)
	}

	callTool(t, tm.graphRebuildHandler, GraphRebuildInput{})
	out = callTool(t, tm.graphSearchHandler, GraphSearchInput{Query: "widget"})
	if !strings.Contains(out, "widget") {
		t.Fatalf("graph_search after rebuild = %q, want widget still present", out)
	}
}
