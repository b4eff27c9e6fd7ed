// Package mcp exposes the inference engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/domain"
)

// Server represents the MCP server implementation
type Server struct {
	mcpServer *mcp.Server
	service   domain.InferenceService
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(cfg domain.MCPConfig, service domain.InferenceService, logger *logrus.Logger) *Server {
	name := cfg.ServerName
	if name == "" {
		name = "medguard-inference"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		service:   service,
		logger:    logger,
	}
	s.registerTools()

	return s
}

// registerTools registers the inference and catalog tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolValidateSubmission,
		Description: "Check a symptom submission against the input rules without scoring it.",
	}, s.handleValidateSubmission)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolDiagnoseSymptoms,
		Description: "Rank up to five conditions for a set of symptom ids, with probabilities and confidence intervals.",
	}, s.handleDiagnoseSymptoms)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolLookupSymptom,
		Description: "Return the catalog entry for a symptom id.",
	}, s.handleLookupSymptom)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListSymptoms,
		Description: "List the symptom catalog, optionally filtered by category.",
	}, s.handleListSymptoms)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListConditions,
		Description: "List the conditions known to the knowledge base.",
	}, s.handleListConditions)

	s.logger.WithField("tool_count", 5).Info("Registered MCP tools")
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.WithFields(logrus.Fields{
		"knowledge_base_version": s.service.Version(),
		"fingerprint":            s.service.Fingerprint(),
	}).Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// createErrorResult creates a standardized error result for tool calls
func createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
