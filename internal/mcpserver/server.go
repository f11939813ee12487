// Package mcpserver exposes project exploration memory to external agents over MCP.
package mcpserver

import (
	"context"
	"fmt"

	"game-exploration-be/pkg/exploration/memory"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "game-exploration-memory"
	Version = "1.0.0"
)

// MemorySearcher is the part of the memory service the tool needs.
type MemorySearcher interface {
	Search(ctx context.Context, projectId uuid.UUID, query, filterType string) (string, error)
}

// New builds an MCP server with the search_memory tool registered.
func New(searcher MemorySearcher) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	tool := NewSearchMemoryTool(searcher)
	s.AddTool(tool.Definition(), tool.Handle)
	return s
}

// SearchMemoryTool serves the same digest stages get from search_memory.
type SearchMemoryTool struct {
	searcher MemorySearcher
}

func NewSearchMemoryTool(searcher MemorySearcher) *SearchMemoryTool {
	return &SearchMemoryTool{searcher: searcher}
}

func (t *SearchMemoryTool) Definition() mcp.Tool {
	def := memory.SearchTool()
	return mcp.NewTool(memory.ToolName,
		mcp.WithDescription(def.Description),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project UUID whose memories are searched"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to search for, e.g. 'runner game controls'"),
		),
		mcp.WithString("filter_type",
			mcp.Enum(memory.FilterAll, memory.FilterDesignDecision, memory.FilterFinish),
			mcp.Description("Filter by memory type. 'all' returns everything."),
		),
	)
}

func (t *SearchMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectId, err := uuid.Parse(req.GetString("project_id", ""))
	if err != nil {
		return mcp.NewToolResultError("'project_id' must be a UUID"), nil
	}
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	filter := req.GetString("filter_type", memory.FilterAll)

	digest, err := t.searcher.Search(ctx, projectId, query, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(digest), nil
}
