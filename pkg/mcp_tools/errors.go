package mcp_tools

import (
	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/madeindigio/memory-bank-mcp/internal/bankerr"
)

const errParseArgs = "failed to parse arguments: %w"

// ToolError is the stable { error, code } shape every tool returns on
// failure instead of a transport-level error (spec.md §7).
type ToolError struct {
	Error string `json:"error" toon:"error"`
	Code  string `json:"code" toon:"code"`
}

// errorResult renders err as a successful CallToolResult carrying a
// ToolError payload, so callers always get a structured failure rather than
// a raw protocol error.
func errorResult(err error) *protocol.CallToolResult {
	payload := ToolError{Error: err.Error(), Code: string(bankerr.CodeOf(err))}
	return textResult(MarshalTOON(payload))
}

func textResult(text string) *protocol.CallToolResult {
	return protocol.NewCallToolResult([]protocol.Content{
		&protocol.TextContent{Type: "text", Text: text},
	}, false)
}
