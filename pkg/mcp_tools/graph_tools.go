package mcp_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/madeindigio/memory-bank-mcp/internal/graph"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

func (tm *ToolManager) registerGraphTools(reg registerFunc) error {
	if err := reg("graph_upsert_entity", tm.graphUpsertEntityTool(), tm.graphUpsertEntityHandler); err != nil {
		return err
	}
	if err := reg("graph_add_observation", tm.graphAddObservationTool(), tm.graphAddObservationHandler); err != nil {
		return err
	}
	if err := reg("graph_add_doc_pointer", tm.graphAddDocPointerTool(), tm.graphAddDocPointerHandler); err != nil {
		return err
	}
	if err := reg("graph_link_entities", tm.graphLinkEntitiesTool(), tm.graphLinkEntitiesHandler); err != nil {
		return err
	}
	if err := reg("graph_unlink_entities", tm.graphUnlinkEntitiesTool(), tm.graphUnlinkEntitiesHandler); err != nil {
		return err
	}
	if err := reg("graph_delete_entity", tm.graphDeleteEntityTool(), tm.graphDeleteEntityHandler); err != nil {
		return err
	}
	if err := reg("graph_delete_observation", tm.graphDeleteObservationTool(), tm.graphDeleteObservationHandler); err != nil {
		return err
	}
	if err := reg("graph_search", tm.graphSearchTool(), tm.graphSearchHandler); err != nil {
		return err
	}
	if err := reg("graph_open_nodes", tm.graphOpenNodesTool(), tm.graphOpenNodesHandler); err != nil {
		return err
	}
	if err := reg("graph_rebuild", tm.graphRebuildTool(), tm.graphRebuildHandler); err != nil {
		return err
	}
	if err := reg("graph_compact", tm.graphCompactTool(), tm.graphCompactHandler); err != nil {
		return err
	}
	return nil
}

func (tm *ToolManager) graphUpsertEntityTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_upsert_entity", `Create an entity, or merge into the existing entity of the same (case-insensitive) name.`, GraphUpsertEntityInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_upsert_entity", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphUpsertEntityHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphUpsertEntityInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	entity, err := h.Graph.UpsertEntity(input.Name, input.EntityType, input.Attrs)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(entity)), nil
}

func (tm *ToolManager) graphAddObservationTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_add_observation", `Attach a text observation to an existing entity (referenced by id or name).`, GraphAddObservationInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_add_observation", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphAddObservationHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphAddObservationInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	source := graph.SourceManual
	if input.Source != "" {
		source = graph.ObservationSource(input.Source)
	}
	obs, err := h.Graph.AddObservation(input.Entity, input.Text, source, "")
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(obs)), nil
}

func (tm *ToolManager) graphAddDocPointerTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_add_doc_pointer", `Attach an observation to an entity that points at a memory bank document (and optional heading).`, GraphAddDocPointerInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_add_doc_pointer", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphAddDocPointerHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphAddDocPointerInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	text := input.Filename
	if input.Heading != "" {
		text = fmt.Sprintf("%s#%s", input.Filename, input.Heading)
	}
	obs, err := h.Graph.AddDocPointer(input.Entity, text, input.Filename)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(obs)), nil
}

func (tm *ToolManager) graphLinkEntitiesTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_link_entities", `Create a directed, deduplicated relation between two entities. A repeat of the same (from, to, type) triple is a no-op.`, GraphLinkEntitiesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_link_entities", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphLinkEntitiesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphLinkEntitiesInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	rel, err := h.Graph.LinkEntities(input.From, input.To, input.RelationType)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(rel)), nil
}

func (tm *ToolManager) graphUnlinkEntitiesTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_unlink_entities", `Remove a relation by its (from, to, type) triple. Fails if no such relation exists.`, GraphUnlinkEntitiesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_unlink_entities", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphUnlinkEntitiesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphUnlinkEntitiesInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.Graph.UnlinkEntities(input.From, input.To, input.RelationType); err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"ok": true})), nil
}

func (tm *ToolManager) graphDeleteEntityTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_delete_entity", `Delete an entity, cascading to its observations and any relations touching it.`, GraphDeleteEntityInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_delete_entity", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphDeleteEntityHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphDeleteEntityInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.Graph.DeleteEntity(input.Entity); err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"ok": true})), nil
}

func (tm *ToolManager) graphDeleteObservationTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_delete_observation", `Delete one observation from an entity.`, GraphDeleteObservationInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_delete_observation", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphDeleteObservationHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphDeleteObservationInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.Graph.DeleteObservation(input.EntityID, input.ObservationID); err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"ok": true})), nil
}

func (tm *ToolManager) graphSearchTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_search", `Search entities by name/type/observation substring, optionally filtered by type and expanded to neighboring entities.`, GraphSearchInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_search", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphSearchHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphSearchInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	depth := 0
	if input.IncludeNeighborhood {
		depth = input.NeighborhoodDepth
		if depth <= 0 {
			depth = 1
		}
	}

	results := h.Graph.Search(graph.SearchQuery{
		Text:              input.Query,
		EntityTypes:       input.EntityTypes,
		RelationTypes:     input.RelationTypes,
		NeighborhoodDepth: depth,
		Limit:             input.Limit,
	})

	if len(results) == 0 {
		entities, _, _ := h.Graph.Snapshot()
		names := make([]string, len(entities))
		for i, e := range entities {
			names[i] = e.Name
		}
		similar := FindSimilarStrings(input.Query, names, 3)
		suggestions := make([]string, 0, len(similar))
		for _, m := range similar {
			suggestions = append(suggestions, m.Value)
		}
		msg := fmt.Sprintf("no entities matched %q", input.Query)
		return textResult(CreateEmptyResultTOON(msg, AlternativeSuggestions{SimilarNames: suggestions})), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"results": results})), nil
}

func (tm *ToolManager) graphOpenNodesTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_open_nodes", `Resolve a set of entity names or ids directly, each with its observations and depth-1 relations.`, GraphOpenNodesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_open_nodes", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphOpenNodesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GraphOpenNodesInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	results := h.Graph.OpenNodes(input.Names)
	return textResult(MarshalTOON(map[string]interface{}{"results": results})), nil
}

func (tm *ToolManager) graphRebuildTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_rebuild", `Discard the snapshot and index and refold the entire event log from scratch.`, GraphRebuildInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_rebuild", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphRebuildHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.Graph.Rebuild()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(result)), nil
}

func (tm *ToolManager) graphCompactTool() *protocol.Tool {
	tool, err := protocol.NewTool("graph_compact", `Rewrite the event log to its minimal equivalent form (one record per live entity/observation/relation).`, GraphCompactInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "graph_compact", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) graphCompactHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.Graph.Compact()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(result)), nil
}
