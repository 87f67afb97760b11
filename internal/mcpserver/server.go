// Package mcpserver exposes compiled knowledge-base indexes over MCP.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/search"
)

// Locator tells the server where project indexes live.
type Locator interface {
	Projects() ([]string, error)
	IndexPath(project string) string
}

// Server answers knowledge-base queries for MCP clients.
type Server struct {
	locator Locator
	logger  *logrus.Entry
	mcp     *server.MCPServer
}

// New builds a server with its tools registered.
func New(locator Locator, version string, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	s := &Server{
		locator: locator,
		logger:  logger.WithField("component", "mcp"),
		mcp:     server.NewMCPServer("kb", version, server.WithToolCapabilities(false), server.WithLogging()),
	}

	s.mcp.AddTool(
		mcp.NewTool(
			"list_projects",
			mcp.WithDescription("List knowledge-base projects and whether a search index has been compiled for them."),
		),
		s.handleListProjects,
	)
	s.mcp.AddTool(
		mcp.NewTool(
			"search_knowledge",
			mcp.WithDescription("Full-text search over a compiled knowledge base."),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
			mcp.WithString("page", mcp.Description("Restrict results to one page")),
			mcp.WithString("kind", mcp.Description("Restrict results to one content kind (markdown, html, code)")),
			mcp.WithNumber("limit", mcp.Description("Max number of results (default 10)")),
		),
		s.handleSearch,
	)
	return s
}

// ServeStdio blocks serving requests on stdin and stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("Starting MCP server on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.locator.Projects()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list projects: %v", err)), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText("No projects found."), nil
	}
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		state := "not indexed"
		if _, err := os.Stat(s.locator.IndexPath(p)); err == nil {
			state = "indexed"
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", p, state))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	project, _ := args["project"].(string)
	if project == "" {
		return mcp.NewToolResultError("project argument required"), nil
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument required"), nil
	}
	opts := &search.Options{Limit: 10}
	if l, ok := args["limit"].(float64); ok && l > 0 {
		opts.Limit = int(l)
	}
	opts.Page, _ = args["page"].(string)
	opts.Kind, _ = args["kind"].(string)

	path := s.locator.IndexPath(project)
	if _, err := os.Stat(path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project %s has no search index; compile it with output mode index", project)), nil
	}
	idx, err := search.NewIndex(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open index: %v", err)), nil
	}
	defer idx.Close()

	hits, err := idx.Search(query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	s.logger.WithFields(logrus.Fields{"project": project, "query": query, "hits": len(hits)}).Debug("Search")
	if len(hits) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	return mcp.NewToolResultText(FormatHits(hits)), nil
}

// FormatHits renders hits as plain text, one block per module.
func FormatHits(hits []*search.Hit) string {
	var sb strings.Builder
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		title := h.Title
		if title == "" {
			title = h.EntryID
		}
		fmt.Fprintf(&sb, "[%s] %s (%s)\n%s", h.Key, title, h.Kind, strings.TrimSpace(h.Snippet))
	}
	return sb.String()
}
