package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/memory"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"context_compose": {
		def:     composeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompose },
	},
	"context_situation": {
		def:     situationToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSituation },
	},
	"context_detect_triggers": {
		def:     detectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDetectTriggers },
	},
	"context_budget": {
		def:     budgetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBudget },
	},
	"memory_remember": {
		def:     rememberToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemember },
	},
	"memory_recall": {
		def:     recallToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecall },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with the Aura tools registered.
func NewServer(cfg *config.Config, store *memory.Store, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"aura",
		version,
		server.WithToolCapabilities(true),
	)

	h, err := NewHandlers(cfg, store)
	if err != nil {
		return nil, err
	}

	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s, nil
}

// Run starts the MCP server using stdio transport.
func Run(cfg *config.Config, store *memory.Store, version string) error {
	s, err := NewServer(cfg, store, version)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
