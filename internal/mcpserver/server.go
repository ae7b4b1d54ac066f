// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes herald publishing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/herald/internal/apperr"
	"github.com/starford/herald/internal/siteservice"
)

// RulesURI is the resource URI of the publishing rules.
const RulesURI = "herald://publishing-rules"

// Server wraps the MCP server with herald tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *siteservice.Service
	rules string
}

// New creates a new MCP server with all herald tools registered. rules is
// the text served by get_publishing_rules and the rules resource.
func New(svc *siteservice.Service, rules string) *Server {
	s := &Server{svc: svc, rules: rules}

	s.mcp = server.NewMCPServer(
		"Herald",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Run a publishing pass now and return its outcome: documents written, "+
			"unchanged and deleted, failed notes and missing assets."),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("preview_note",
		mcp.WithDescription("Render a note exactly as it would be published, without writing anything. "+
			"Fails when the note is not marked for publication."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note relative to the notes root (e.g. folder/note.md)")),
	), s.previewNote)

	s.mcp.AddTool(mcp.NewTool("list_published",
		mcp.WithDescription("List the documents currently published on the site."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listPublished)

	s.mcp.AddTool(mcp.NewTool("search_published",
		mcp.WithDescription("Full-text search through published documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPublished)

	s.mcp.AddTool(mcp.NewTool("recent_passes",
		mcp.WithDescription("Outline of the most recent publishing passes, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of passes (default 10)")),
	), s.recentPasses)

	s.mcp.AddTool(mcp.NewTool("pass_events",
		mcp.WithDescription("Every event of one publishing pass, in order."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Pass id from recent_passes")),
	), s.passEvents)

	s.mcp.AddTool(mcp.NewTool("get_publishing_rules",
		mcp.WithDescription("Returns the rules a note must follow to be published and how it is rewritten. "+
			"Call this before editing a note meant for the blog."),
	), s.getPublishingRules)

	// Resource: publishing rules.
	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Publishing Rules",
			mcp.WithResourceDescription("How notes are selected and rewritten for the blog."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled or stdin is
// closed.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) syncNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.SyncNow(ctx)
	if report == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if report.Error != "" {
		return mcp.NewToolResultError("pass failed: " + report.Error), nil
	}
	return jsonResult(struct {
		Summary any `json:"summary"`
		Events  any `json:"events"`
	}{report.Summary(), report.Events}), nil
}

func (s *Server) previewNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.Preview(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := r.Text
	for _, m := range r.Missing {
		text += "\n\n<!-- missing asset: " + m + " -->"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listPublished(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.Documents(ctx, req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs), nil
}

func (s *Server) searchPublished(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) recentPasses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passes, err := s.svc.RecentPasses(ctx, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(passes), nil
}

func (s *Server) passEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.svc.PassEvents(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(events), nil
}

func (s *Server) getPublishingRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.rules), nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     s.rules,
		},
	}, nil
}
