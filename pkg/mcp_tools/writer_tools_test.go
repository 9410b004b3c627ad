package mcp_tools

import (
	"strings"
	"testing"
)

func TestAddProgressEntryAppendsToUpdateHistory(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})

	out := callTool(t, tm.addProgressEntryHandler, AddProgressEntryInput{
		Type:    "feature",
		Summary: "added the search tool",
	})
	if !strings.Contains(out, "etag") {
		t.Fatalf("add_progress_entry result = %q, want an etag", out)
	}

	out = callTool(t, tm.readMemoryBankFileHandler, ReadMemoryBankFileInput{Filename: "progress.md"})
	if !strings.Contains(out, "added the search tool") {
		t.Fatalf("progress.md content = %q, want the new entry", out)
	}
}

func TestAddSessionNoteAndUpdateTasks(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})

	callTool(t, tm.addSessionNoteHandler, AddSessionNoteInput{Note: "switched to SSE transport", Category: "insight"})
	out := callTool(t, tm.readMemoryBankFileHandler, ReadMemoryBankFileInput{Filename: "active-context.md"})
	if !strings.Contains(out, "switched to SSE transport") {
		t.Fatalf("active-context.md content = %q, want the session note", out)
	}

	callTool(t, tm.updateTasksHandler, UpdateTasksInput{Add: []string{"write more tests"}})
	out = callTool(t, tm.readMemoryBankFileHandler, ReadMemoryBankFileInput{Filename: "active-context.md"})
	if !strings.Contains(out, "write more tests") {
		t.Fatalf("active-context.md content = %q, want the added task", out)
	}
}
