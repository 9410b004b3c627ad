// Package mcp_tools exposes the document store and knowledge graph engine
// as MCP tools (spec.md §6). Each tool is a thin adapter: parse arguments,
// call into internal/store, internal/graph, internal/digest, or
// internal/writers, and render the result. The core packages never import
// this one; all protocol concerns live here.
package mcp_tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madeindigio/memory-bank-mcp/internal/session"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	mcpserver "github.com/ThinkInAIXYZ/go-mcp/server"
)

// ToolManager wires the MCP tool surface to a session.Manager, which holds
// the process's open stores and tracks which one is active.
type ToolManager struct {
	sessions *session.Manager
}

// NewToolManager returns a ToolManager backed by sessions.
func NewToolManager(sessions *session.Manager) *ToolManager {
	return &ToolManager{sessions: sessions}
}

// registerFunc registers one tool/handler pair, failing loudly if tool
// construction itself returned nil (a programmer error, not a runtime one).
type registerFunc func(name string, tool *protocol.Tool, handler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)) error

// RegisterTools registers every tool in spec.md §6 with srv.
func (tm *ToolManager) RegisterTools(srv *mcpserver.Server) error {
	reg := func(name string, tool *protocol.Tool, handler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)) error {
		if tool == nil {
			return fmt.Errorf("tool %s creation returned nil", name)
		}
		srv.RegisterTool(tool, handler)
		return nil
	}

	if err := tm.registerDocumentTools(reg); err != nil {
		return err
	}
	if err := tm.registerWriterTools(reg); err != nil {
		return err
	}
	if err := tm.registerBackupTools(reg); err != nil {
		return err
	}
	if err := tm.registerGraphTools(reg); err != nil {
		return err
	}

	slog.Info("registered all memory bank MCP tools")
	return nil
}
