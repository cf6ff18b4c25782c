package operation

import (
	"context"
	"net/http"
	"time"

	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/telemetry"

	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the underlying MCP server together with the values its
// tools read from the request context.
type MCPServer struct {
	server *server.MCPServer
	cfg    core.Configuration
	vault  core.Vault
}

// NewMCPServer creates an MCP server exposing the access token tools for cfg and vault.
func NewMCPServer(version string, cfg core.Configuration, vault core.Vault) *MCPServer {
	mcpServer := server.NewMCPServer(
		"implicit-oauth",
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(telemetry.ToolHandlerMiddleware()),
	)

	RegisterAuthTool(mcpServer)

	return &MCPServer{
		server: mcpServer,
		cfg:    cfg,
		vault:  vault,
	}
}

// Server returns the underlying MCP server.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// WithContext injects the configuration, vault and a request id into ctx.
func (s *MCPServer) WithContext(ctx context.Context) context.Context {
	ctx = core.WithConfiguration(ctx, s.cfg)
	ctx = core.WithVault(ctx, s.vault)
	return core.WithAttemptID(ctx, "")
}

// ServeHTTP returns a streamable HTTP server that injects the tool context into every request.
func (s *MCPServer) ServeHTTP() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.server,
		server.WithHeartbeatInterval(30*time.Second),
		server.WithHTTPContextFunc(func(ctx context.Context, _ *http.Request) context.Context {
			return s.WithContext(ctx)
		}),
	)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.server, server.WithStdioContextFunc(s.WithContext))
}
