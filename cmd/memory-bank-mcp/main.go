// Package main is the entry point for the memory-bank-mcp server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/madeindigio/memory-bank-mcp/internal/config"
	"github.com/madeindigio/memory-bank-mcp/internal/session"
	"github.com/madeindigio/memory-bank-mcp/pkg/mcp_tools"
	"github.com/madeindigio/memory-bank-mcp/pkg/version"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	mcpserver "github.com/ThinkInAIXYZ/go-mcp/server"
	mcptransport "github.com/ThinkInAIXYZ/go-mcp/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SetupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := session.NewManager(cfg.Store)
	if err != nil {
		slog.Error("failed to open configured store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}

	if cfg.CompactionOnStart {
		if h, err := sessions.Active(); err == nil {
			if result, err := h.Graph.Compact(); err != nil {
				slog.Warn("startup compaction failed", "err", err)
			} else {
				slog.Info("startup compaction complete", "entities", result.Entities, "observations", result.Observations, "relations", result.Relations)
			}
		}
	}

	var t mcptransport.ServerTransport
	if cfg.SSE {
		slog.Info("starting MCP over SSE", "addr", cfg.SSEAddr)
		t, err = mcptransport.NewSSEServerTransport(cfg.SSEAddr)
		if err != nil {
			slog.Error("failed to initialize SSE transport", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Info("starting MCP over stdio")
		t = mcptransport.NewStdioServerTransport()
	}

	srv, err := mcpserver.NewServer(
		t,
		mcpserver.WithServerInfo(protocol.Implementation{
			Name:    "memory-bank-mcp",
			Version: version.Version,
		}),
		mcpserver.WithInstructions("memory-bank-mcp is ready. Call initialize_memory_bank(path) to open a store."),
	)
	if err != nil {
		slog.Error("failed to create MCP server", "err", err)
		os.Exit(1)
	}

	tm := mcp_tools.NewToolManager(sessions)
	if err := tm.RegisterTools(srv); err != nil {
		slog.Error("failed to register MCP tools", "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown returned an error", "err", err)
		}
	}()

	if err := srv.Run(); err != nil {
		slog.Error("server run error", "err", err)
		os.Exit(1)
	}
}
