// Package mcp provides a Model Context Protocol server for roster.
//
// It exposes name resolution, record insertion, and directory statistics
// as MCP tools over stdio transport, so agents can validate and correct
// person names against the directory.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/roster/internal/resolve"
	"github.com/hurttlocker/roster/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Directory store.Directory
	Pipeline  *resolve.Pipeline
	Version   string // version string for MCP server info
}

// dbMu serializes MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines;
// SQLite supports only one writer at a time, and an insert racing a
// resolution could serve it a half-written candidate set.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all roster tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Roster",
		ver,
		server.WithToolCapabilities(false),
	)

	registerResolveTool(s, cfg.Pipeline)
	registerAddTool(s, cfg.Directory)
	registerStatsTool(s, cfg.Directory)

	return s
}

func registerResolveTool(s *server.MCPServer, pipeline *resolve.Pipeline) {
	tool := mcp.NewTool("roster_resolve",
		mcp.WithDescription("Resolve a possibly misspelled person name against the directory. Returns the exact match, an auto-accepted correction, or ranked suggestions with similarity scores."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The person name to resolve"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}

		result, err := pipeline.Resolve(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("resolve error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerAddTool(s *server.MCPServer, dir store.Directory) {
	tool := mcp.NewTool("roster_add",
		mcp.WithDescription("Add a person record to the directory. The normalized comparison forms are computed automatically."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name of the person"),
		),
		mcp.WithNumber("popularity",
			mcp.Description("Optional popularity weight used for tie-breaking (default: 0)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		name, err := req.RequireString("name")
		if err != nil || strings.TrimSpace(name) == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		p := &store.Person{Name: strings.TrimSpace(name)}
		if pop, err := req.RequireFloat("popularity"); err == nil && pop > 0 {
			p.Popularity = int64(pop)
		}

		id, err := dir.AddPerson(ctx, p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("add error: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(`{"id": %d, "name_norm": %q, "name_key": %q}`, id, p.NameNorm, p.NameKey)), nil
	})
}

func registerStatsTool(s *server.MCPServer, dir store.Directory) {
	tool := mcp.NewTool("roster_stats",
		mcp.WithDescription("Directory statistics: record count, full-text availability, database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := dir.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]any{
			"persons":       stats.PersonCount,
			"fulltext":      stats.FullText,
			"db_size_bytes": stats.DBSizeBytes,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
