package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "trailmap"
	ServerVersion = "v1.0.0"
)

// Server exposes the journey engine as MCP tools
type Server struct {
	mcpServer *mcp.Server
	service   *journey.Service
	logger    *slog.Logger
	handler   *tools.Handler
}

// NewServer creates a new Trailmap MCP server
func NewServer(svc *journey.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		service:   svc,
		logger:    logger,
		handler:   tools.NewHandler(svc, logger),
	}

	s.registerTools()
	return s
}

// registerTools adds all MCP tools to the server
func (s *Server) registerTools() {
	// Journeys
	mcp.AddTool(s.mcpServer, tools.GenerateJourneyTool(), s.handler.HandleGenerateJourney)
	mcp.AddTool(s.mcpServer, tools.GetJourneyTool(), s.handler.HandleGetJourney)
	mcp.AddTool(s.mcpServer, tools.GetETATool(), s.handler.HandleGetETA)
	mcp.AddTool(s.mcpServer, tools.DeleteJourneyTool(), s.handler.HandleDeleteJourney)

	// Steps
	mcp.AddTool(s.mcpServer, tools.StartStepTool(), s.handler.HandleStartStep)
	mcp.AddTool(s.mcpServer, tools.CompleteStepTool(), s.handler.HandleCompleteStep)
	mcp.AddTool(s.mcpServer, tools.SkipStepTool(), s.handler.HandleSkipStep)
	mcp.AddTool(s.mcpServer, tools.UpdateStepStatusTool(), s.handler.HandleUpdateStepStatus)
	mcp.AddTool(s.mcpServer, tools.RenameStepTool(), s.handler.HandleRenameStep)
	mcp.AddTool(s.mcpServer, tools.AddStepNoteTool(), s.handler.HandleAddStepNote)

	// Adjustments and branches
	mcp.AddTool(s.mcpServer, tools.AdjustJourneyTool(), s.handler.HandleAdjustJourney)
	mcp.AddTool(s.mcpServer, tools.ApplyAdjustmentTool(), s.handler.HandleApplyAdjustment)
	mcp.AddTool(s.mcpServer, tools.ChoosePathTool(), s.handler.HandleChoosePath)
}

// HTTPHandler returns an http.Handler for the MCP server
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			return s.mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Logger: s.logger,
		},
	)
}

// Run starts the MCP server over stdio (for CLI usage)
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves the MCP session over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Close waits for background store writes to finish.
func (s *Server) Close() {
	s.service.Wait()
}
