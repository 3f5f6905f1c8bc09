package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"remedy/internal/registry"
	"remedy/pkg/logging"
)

const mcpSubsystem = "MCPServer"

// Remediator triggers background remediation attempts.
type Remediator interface {
	Trigger(ctx context.Context, service string) error
}

// Server exposes the status registry and the remediation trigger as MCP
// tools so AI assistants can inspect and repair backing services through
// the standard MCP protocol.
type Server struct {
	cluster    string
	statusReg  *registry.StatusRegistry
	history    *registry.History
	remediator Remediator

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// New creates an MCP server bound to the shared registries and remediator.
func New(version, cluster string, statusReg *registry.StatusRegistry, history *registry.History, remediator Remediator) *Server {
	mcpServer := server.NewMCPServer(
		"remedy",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		cluster:    cluster,
		statusReg:  statusReg,
		history:    history,
		remediator: remediator,
		mcpServer:  mcpServer,
	}
	s.registerTools()
	return s
}

// Start serves MCP over streamable HTTP on addr until the context is
// cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		logging.Info(mcpSubsystem, "Starting MCP server with streamable-http transport on %s", addr)
		if err := s.httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerTools() {
	getStatusTool := mcp.NewTool("get_status",
		mcp.WithDescription("Get the health status of all monitored backing services and the remediation history"),
	)
	s.mcpServer.AddTool(getStatusTool, s.handleGetStatus)

	remediateTool := mcp.NewTool("remediate_service",
		mcp.WithDescription("Trigger automated remediation for an unhealthy backing service (vault, consul, or elasticsearch)"),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Name of the service to remediate"),
		),
	)
	s.mcpServer.AddTool(remediateTool, s.handleRemediate)
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.statusReg.Snapshot()
	payload := map[string]interface{}{
		"cluster":          s.cluster,
		"status":           snap.Records,
		"remediation_log":  s.history.Entries(),
		"total_services":   snap.Total,
		"healthy_services": snap.Healthy,
	}

	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (s *Server) handleRemediate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := request.RequireString("service")
	if err != nil {
		return mcp.NewToolResultError("service argument is required"), nil
	}

	if err := s.remediator.Trigger(ctx, service); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Remediation failed to start: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Remediation started for %s", service)), nil
}
