// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/journal"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/search"
)

// FormatURI is the resource URI of the entry format description.
const FormatURI = "journal://format"

// Searcher answers read-side tool calls.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]models.SearchResult, error)
	ListRecent(ctx context.Context, opts search.Options) ([]models.SearchResult, error)
	ReadEntry(ctx context.Context, path string) (string, error)
}

// Writer stores new thoughts.
type Writer interface {
	WriteThoughts(ctx context.Context, th journal.Thoughts) ([]models.Note, error)
}

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	writer   Writer
	logger   *slog.Logger
}

// New creates a new MCP server with all journal tools registered.
func New(searcher Searcher, writer Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{searcher: searcher, writer: writer, logger: logger}

	s.mcp = server.NewMCPServer(
		"ai-journal",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("process_thoughts",
		mcp.WithDescription("Record private thoughts. Project notes go to the project journal; "+
			"feelings, user context, technical insights and world knowledge go to the user journal. "+
			"Provide at least one section."),
		mcp.WithString("feelings", mcp.Description("How you feel about the current work")),
		mcp.WithString("project_notes", mcp.Description("Notes about this codebase and its architecture")),
		mcp.WithString("user_context", mcp.Description("What you learned about the user and their preferences")),
		mcp.WithString("technical_insights", mcp.Description("General software engineering insights")),
		mcp.WithString("world_knowledge", mcp.Description("Anything else worth remembering")),
	), s.processThoughts)

	s.mcp.AddTool(mcp.NewTool("search_journal",
		mcp.WithDescription("Semantic search over journal entries, ranked by similarity."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
		mcp.WithString("type", mcp.Description("Restrict to one journal"), mcp.Enum("project", "user")),
		mcp.WithArray("sections", mcp.WithStringItems(),
			mcp.Description("Keep entries with a section containing any of these labels (case-insensitive)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchJournal)

	s.mcp.AddTool(mcp.NewTool("read_journal_entry",
		mcp.WithDescription("Read the full content of a journal entry by the path returned from search."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the entry")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("list_recent_entries",
		mcp.WithDescription("List the most recent journal entries, newest first."),
		mcp.WithString("type", mcp.Description("Restrict to one journal"), mcp.Enum("project", "user")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries")),
	), s.listRecent)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Journal Entry Format",
			mcp.WithResourceDescription("On-disk layout and structure of journal entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns err into a tool-level error result. Internal failures are
// logged; their details are not passed to the client.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrAccessDenied), errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(err.Error())
	default:
		s.logger.Error("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("%s failed", tool))
	}
}

func (s *Server) processThoughts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	th := journal.Thoughts{
		Feelings:          req.GetString("feelings", ""),
		ProjectNotes:      req.GetString("project_notes", ""),
		UserContext:       req.GetString("user_context", ""),
		TechnicalInsights: req.GetString("technical_insights", ""),
		WorldKnowledge:    req.GetString("world_knowledge", ""),
	}
	notes, err := s.writer.WriteThoughts(ctx, th)
	if err != nil {
		return s.toolError("process_thoughts", err), nil
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = fmt.Sprintf("%s: %s", n.Type, n.Path)
	}
	return mcp.NewToolResultText("Thoughts recorded.\n" + strings.Join(lines, "\n")), nil
}

func (s *Server) searchJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := search.Options{
		Type:     models.EntryType(req.GetString("type", "")),
		Sections: req.GetStringSlice("sections", nil),
		Limit:    req.GetInt("limit", 0),
	}
	results, err := s.searcher.Search(ctx, query, opts)
	if err != nil {
		return s.toolError("search_journal", err), nil
	}
	return jsonResult(results)
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.searcher.ReadEntry(ctx, path)
	if err != nil {
		return s.toolError("read_journal_entry", err), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) listRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := search.Options{
		Type:  models.EntryType(req.GetString("type", "")),
		Limit: req.GetInt("limit", 0),
	}
	entries, err := s.searcher.ListRecent(ctx, opts)
	if err != nil {
		return s.toolError("list_recent_entries", err), nil
	}
	return jsonResult(entries)
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     EntryFormat,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
