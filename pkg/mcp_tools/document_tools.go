package mcp_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/madeindigio/memory-bank-mcp/internal/digest"
	"github.com/madeindigio/memory-bank-mcp/internal/store"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

func (tm *ToolManager) registerDocumentTools(reg registerFunc) error {
	if err := reg("initialize_memory_bank", tm.initializeMemoryBankTool(), tm.initializeMemoryBankHandler); err != nil {
		return err
	}
	if err := reg("read_memory_bank_file", tm.readMemoryBankFileTool(), tm.readMemoryBankFileHandler); err != nil {
		return err
	}
	if err := reg("write_memory_bank_file", tm.writeMemoryBankFileTool(), tm.writeMemoryBankFileHandler); err != nil {
		return err
	}
	if err := reg("list_memory_bank_files", tm.listMemoryBankFilesTool(), tm.listMemoryBankFilesHandler); err != nil {
		return err
	}
	if err := reg("get_memory_bank_status", tm.getMemoryBankStatusTool(), tm.getMemoryBankStatusHandler); err != nil {
		return err
	}
	if err := reg("batch_read_files", tm.batchReadFilesTool(), tm.batchReadFilesHandler); err != nil {
		return err
	}
	if err := reg("batch_write_files", tm.batchWriteFilesTool(), tm.batchWriteFilesHandler); err != nil {
		return err
	}
	if err := reg("get_context_bundle", tm.getContextBundleTool(), tm.getContextBundleHandler); err != nil {
		return err
	}
	if err := reg("get_context_digest", tm.getContextDigestTool(), tm.getContextDigestHandler); err != nil {
		return err
	}
	if err := reg("search_memory_bank", tm.searchMemoryBankTool(), tm.searchMemoryBankHandler); err != nil {
		return err
	}
	return nil
}

func (tm *ToolManager) initializeMemoryBankTool() *protocol.Tool {
	tool, err := protocol.NewTool("initialize_memory_bank", `Open (creating if absent) the memory bank store at path and make it the active store.`, InitializeMemoryBankInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "initialize_memory_bank", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) initializeMemoryBankHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input InitializeMemoryBankInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Initialize(input.Path)
	if err != nil {
		return errorResult(err), nil
	}

	return textResult(MarshalTOON(map[string]interface{}{
		"storeId": h.Graph.StoreID(),
		"root":    h.Root,
	})), nil
}

func (tm *ToolManager) readMemoryBankFileTool() *protocol.Tool {
	tool, err := protocol.NewTool("read_memory_bank_file", `Read a document from the active memory bank store.`, ReadMemoryBankFileInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "read_memory_bank_file", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) readMemoryBankFileHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input ReadMemoryBankFileInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	content, etag, err := h.Docs.Read(input.Filename)
	if err != nil {
		return errorResult(err), nil
	}

	payload := map[string]interface{}{"content": string(content)}
	if input.IncludeEtag {
		payload["etag"] = etag
	}
	return textResult(MarshalTOON(payload)), nil
}

func (tm *ToolManager) writeMemoryBankFileTool() *protocol.Tool {
	tool, err := protocol.NewTool("write_memory_bank_file", `Write a document in the active memory bank store, optionally preconditioned on its current ETag.`, WriteMemoryBankFileInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "write_memory_bank_file", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) writeMemoryBankFileHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input WriteMemoryBankFileInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	etag, err := h.Docs.Write(input.Filename, []byte(input.Content), input.IfMatchEtag)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"etag": etag})), nil
}

func (tm *ToolManager) listMemoryBankFilesTool() *protocol.Tool {
	tool, err := protocol.NewTool("list_memory_bank_files", `List every document in the active memory bank store.`, ListMemoryBankFilesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "list_memory_bank_files", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) listMemoryBankFilesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}
	files, err := h.Docs.List()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"files": files})), nil
}

func (tm *ToolManager) getMemoryBankStatusTool() *protocol.Tool {
	tool, err := protocol.NewTool("get_memory_bank_status", `Report the active store's root, document list, and graph statistics.`, GetMemoryBankStatusInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "get_memory_bank_status", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) getMemoryBankStatusHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	files, err := h.Docs.List()
	if err != nil {
		return errorResult(err), nil
	}
	stats := h.Graph.Stats()

	return textResult(MarshalTOON(map[string]interface{}{
		"storeId": h.Graph.StoreID(),
		"root":    h.Root,
		"files":   files,
		"graph":   stats,
	})), nil
}

func (tm *ToolManager) batchReadFilesTool() *protocol.Tool {
	tool, err := protocol.NewTool("batch_read_files", `Read several documents from the active memory bank store in one call.`, BatchReadFilesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "batch_read_files", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) batchReadFilesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input BatchReadFilesInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	results := h.Docs.BatchRead(input.Files)
	payload := make(map[string]interface{}, len(results))
	for name, r := range results {
		entry := map[string]interface{}{}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		} else {
			entry["content"] = string(r.Content)
			if input.IncludeEtags {
				entry["etag"] = r.ETag
			}
		}
		payload[name] = entry
	}
	return textResult(MarshalTOON(payload)), nil
}

func (tm *ToolManager) batchWriteFilesTool() *protocol.Tool {
	tool, err := protocol.NewTool("batch_write_files", `Write several documents in the active memory bank store in one call.`, BatchWriteFilesInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "batch_write_files", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) batchWriteFilesHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input BatchWriteFilesInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	items := make([]store.WriteRequest, len(input.Files))
	for i, f := range input.Files {
		items[i] = store.WriteRequest{Filename: f.Filename, Content: []byte(f.Content), IfMatch: f.IfMatchEtag}
	}
	results := h.Docs.BatchWrite(items, input.StopOnError)

	payload := make(map[string]interface{}, len(results))
	for name, r := range results {
		entry := map[string]interface{}{}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		} else {
			entry["etag"] = r.ETag
		}
		payload[name] = entry
	}
	return textResult(MarshalTOON(payload)), nil
}

func (tm *ToolManager) getContextBundleTool() *protocol.Tool {
	tool, err := protocol.NewTool("get_context_bundle", `Read every core document from the active memory bank store in one call.`, GetContextBundleInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "get_context_bundle", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) getContextBundleHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GetContextBundleInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	results := h.Docs.BatchRead(store.CoreDocuments())
	payload := make(map[string]interface{}, len(results))
	for name, r := range results {
		if r.Err != nil {
			continue
		}
		entry := map[string]interface{}{"content": string(r.Content)}
		if input.IncludeEtags {
			entry["etag"] = r.ETag
		}
		payload[name] = entry
	}
	return textResult(MarshalTOON(payload)), nil
}

func (tm *ToolManager) getContextDigestTool() *protocol.Tool {
	tool, err := protocol.NewTool("get_context_digest", `Compose a compact cross-document context digest combining active-context.md, progress.md, decision-log.md, system-patterns.md, and the graph.`, GetContextDigestInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "get_context_digest", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) getContextDigestHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input GetContextDigestInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	opts := digest.DefaultOptions()
	if input.MaxProgressEntries > 0 {
		opts.MaxProgressEntries = input.MaxProgressEntries
	}
	if input.MaxDecisions > 0 {
		opts.MaxDecisions = input.MaxDecisions
	}
	opts.IncludeSystemPatterns = input.IncludeSystemPatterns

	d, err := digest.Build(h.Docs, h.Graph, opts)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(d)), nil
}

func (tm *ToolManager) searchMemoryBankTool() *protocol.Tool {
	tool, err := protocol.NewTool("search_memory_bank", `Search document content for a substring, optionally restricted to a set of filenames.`, SearchMemoryBankInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "search_memory_bank", "err", err)
		return nil
	}
	return tool
}

type searchHit struct {
	File string `json:"file" toon:"file"`
	Line int    `json:"line" toon:"line"`
	Text string `json:"text" toon:"text"`
}

func (tm *ToolManager) searchMemoryBankHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input SearchMemoryBankInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	files := input.Files
	if len(files) == 0 {
		files, err = h.Docs.List()
		if err != nil {
			return errorResult(err), nil
		}
	}
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	needle := input.Query
	if !input.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	var hits []searchHit
	for _, name := range files {
		content, _, readErr := h.Docs.Read(name)
		if readErr != nil {
			continue
		}
		for i, line := range strings.Split(string(content), "\n") {
			haystack := line
			if !input.CaseSensitive {
				haystack = strings.ToLower(haystack)
			}
			if strings.Contains(haystack, needle) {
				hits = append(hits, searchHit{File: name, Line: i + 1, Text: line})
				if len(hits) >= maxResults {
					break
				}
			}
		}
		if len(hits) >= maxResults {
			break
		}
	}

	if len(hits) == 0 {
		words := strings.Fields(needle)
		counts := make(map[string]int, len(files))
		for _, name := range files {
			content, _, readErr := h.Docs.Read(name)
			if readErr != nil {
				continue
			}
			haystack := string(content)
			if !input.CaseSensitive {
				haystack = strings.ToLower(haystack)
			}
			for _, w := range words {
				counts[name] += strings.Count(haystack, w)
			}
		}
		suggestions := AlternativeSuggestions{OtherIDs: TopAlternativesFromCounts(counts, 5)}
		return textResult(CreateEmptyResultTOON(fmt.Sprintf("no matches for %q", input.Query), suggestions)), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"results": hits})), nil
}
