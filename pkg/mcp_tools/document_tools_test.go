package mcp_tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/madeindigio/memory-bank-mcp/internal/session"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

func newTestToolManager(t *testing.T) (*ToolManager, string) {
	t.Helper()
	sessions, err := session.NewManager("")
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}
	return NewToolManager(sessions), t.TempDir()
}

func callTool(t *testing.T, handler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error), args interface{}) string {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("json.Marshal(args) = %v", err)
	}
	result, err := handler(context.Background(), &protocol.CallToolRequest{RawArguments: raw})
	if err != nil {
		t.Fatalf("handler() = %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("handler() returned %d content blocks, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(*protocol.TextContent)
	if !ok {
		t.Fatalf("handler() content is %T, want *protocol.TextContent", result.Content[0])
	}
	return text.Text
}

func TestInitializeThenWriteThenRead(t *testing.T) {
	tm, root := newTestToolManager(t)

	out := callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	if !strings.Contains(out, "storeId") {
		t.Fatalf("initialize_memory_bank result = %q, want storeId", out)
	}

	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{
		Filename: "product-context.md",
		Content:  "# Product\n\nIt does things.\n",
	})

	out = callTool(t, tm.readMemoryBankFileHandler, ReadMemoryBankFileInput{Filename: "product-context.md", IncludeEtag: true})
	if !strings.Contains(out, "It does things") {
		t.Fatalf("read_memory_bank_file result = %q, want document content", out)
	}
	if !strings.Contains(out, "etag") {
		t.Fatalf("read_memory_bank_file result = %q, want etag when requested", out)
	}
}

func TestReadBeforeInitializeReturnsToolError(t *testing.T) {
	tm, _ := newTestToolManager(t)

	out := callTool(t, tm.readMemoryBankFileHandler, ReadMemoryBankFileInput{Filename: "active-context.md"})
	if !strings.Contains(out, "NOT_INITIALIZED") {
		t.Fatalf("read_memory_bank_file before initialize = %q, want a NOT_INITIALIZED ToolError", out)
	}
}

func TestWriteThenConflictingWriteFails(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})

	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{Filename: "progress.md", Content: "v1"})

	out := callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{
		Filename:    "progress.md",
		Content:     "v2",
		IfMatchEtag: "stale-etag",
	})
	if !strings.Contains(out, "error") {
		t.Fatalf("write with a stale ifMatchEtag = %q, want an error payload", out)
	}
}

func TestListAndStatusReflectWrites(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{Filename: "decision-log.md", Content: "# Decisions\n"})

	out := callTool(t, tm.listMemoryBankFilesHandler, ListMemoryBankFilesInput{})
	if !strings.Contains(out, "decision-log.md") {
		t.Fatalf("list_memory_bank_files result = %q, want decision-log.md", out)
	}

	out = callTool(t, tm.getMemoryBankStatusHandler, GetMemoryBankStatusInput{})
	if !strings.Contains(out, "storeId") || !strings.Contains(out, "graph") {
		t.Fatalf("get_memory_bank_status result = %q, want storeId and graph fields", out)
	}
}

func TestSearchMemoryBankFindsAndMisses(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{
		Filename: "system-patterns.md",
		Content:  "# Patterns\n\nUses the repository pattern.\n",
	})

	out := callTool(t, tm.searchMemoryBankHandler, SearchMemoryBankInput{Query: "repository pattern"})
	if !strings.Contains(out, "system-patterns.md") {
		t.Fatalf("search_memory_bank hit result = %q, want a match in system-patterns.md", out)
	}

	out = callTool(t, tm.searchMemoryBankHandler, SearchMemoryBankInput{Query: "nonexistent needle"})
	if !strings.Contains(out, "no matches") {
		t.Fatalf("search_memory_bank miss result = %q, want an empty-result message", out)
	}
}

func TestSearchMemoryBankMissRanksSuggestionsByWordOverlap(t *testing.T) {
	tm, root := newTestToolManager(t)
	callTool(t, tm.initializeMemoryBankHandler, InitializeMemoryBankInput{Path: root})
	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{
		Filename: "system-patterns.md",
		Content:  "# Patterns\n\nThe repository uses the repository pattern everywhere.\n",
	})
	callTool(t, tm.writeMemoryBankFileHandler, WriteMemoryBankFileInput{
		Filename: "product-context.md",
		Content:  "# Product\n\nNo relevant words here.\n",
	})

	out := callTool(t, tm.searchMemoryBankHandler, SearchMemoryBankInput{Query: "repository singleton"})
	if !strings.Contains(out, "system-patterns.md") {
		t.Fatalf("search_memory_bank miss result = %q, want system-patterns.md ranked as a suggestion", out)
	}
}
