package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docchat/docchat/internal/pipeline"
)

// Server wraps the MCP server with its pipeline dependency.
type Server struct {
	server *mcp.Server
	coord  *pipeline.Coordinator
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(coord *pipeline.Coordinator) *Server {
	impl := &mcp.Implementation{
		Name:    "docchat-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Ask a natural-language question about the ingested document. Pass prior turns as a flat question/answer history for follow-ups.",
	}, makeAskHandler(coord))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Ingest a local document (.txt, .md, .pdf), replacing any previously indexed document.",
	}, makeIngestHandler(coord))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Get engine readiness and index statistics for the current document.",
	}, makeStatusHandler(coord))

	return &Server{server: server, coord: coord}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance for transport
// handlers that need to wrap it.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
