package mcp_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/writers"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

func (tm *ToolManager) registerWriterTools(reg registerFunc) error {
	if err := reg("add_progress_entry", tm.addProgressEntryTool(), tm.addProgressEntryHandler); err != nil {
		return err
	}
	if err := reg("add_session_note", tm.addSessionNoteTool(), tm.addSessionNoteHandler); err != nil {
		return err
	}
	if err := reg("update_tasks", tm.updateTasksTool(), tm.updateTasksHandler); err != nil {
		return err
	}
	return nil
}

func (tm *ToolManager) addProgressEntryTool() *protocol.Tool {
	tool, err := protocol.NewTool("add_progress_entry", `Append a dated progress entry to progress.md under "## Update History" without disturbing the rest of the document.`, AddProgressEntryInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "add_progress_entry", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) addProgressEntryHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input AddProgressEntryInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	entry := writers.ProgressEntry{
		Category: writers.ProgressCategory(input.Type),
		Summary:  input.Summary,
		Details:  input.Details,
		Files:    input.Files,
		Tags:     input.Tags,
	}
	id, etag, err := writers.AddProgressEntry(h.Docs, entry, time.Now().UTC())
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"id": id, "etag": etag})), nil
}

func (tm *ToolManager) addSessionNoteTool() *protocol.Tool {
	tool, err := protocol.NewTool("add_session_note", `Insert a timestamped note at the top of "## Session Notes" in active-context.md.`, AddSessionNoteInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "add_session_note", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) addSessionNoteHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input AddSessionNoteInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	etag, err := writers.AddSessionNote(h.Docs, input.Note, input.Category, time.Now().UTC())
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"etag": etag})), nil
}

func (tm *ToolManager) updateTasksTool() *protocol.Tool {
	tool, err := protocol.NewTool("update_tasks", `Add, remove, or wholesale replace the bulleted task list under "## Tasks" in active-context.md.`, UpdateTasksInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "update_tasks", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) updateTasksHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input UpdateTasksInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	etag, err := writers.UpdateTasks(h.Docs, writers.TaskEdit{Add: input.Add, Remove: input.Remove, Replace: input.Replace})
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"etag": etag})), nil
}
