// Package authorize provides the MCP tool that builds the authorization URL.
package authorize

import (
	"context"

	"github.com/go-training/implicit-oauth/pkg/authorizer"
	"github.com/go-training/implicit-oauth/pkg/cookie"
	"github.com/go-training/implicit-oauth/pkg/core"

	"github.com/mark3labs/mcp-go/mcp"
)

// AuthorizationURLTool defines the MCP tool returning the URL a user opens to authorize the client.
var AuthorizationURLTool = mcp.NewTool("authorization_url",
	mcp.WithDescription("Build the OAuth authorization URL for the configured client"),
)

// HandleAuthorizationURLTool builds the authorization URL from the configuration in ctx.
func HandleAuthorizationURLTool(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	cfg, err := core.ConfigurationFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// A private jar keeps the browser session of a concurrent login untouched.
	a, err := authorizer.New(cfg, authorizer.WithCookieStorage(cookie.NewJar()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(a.AuthorizationURL().String()), nil
}
