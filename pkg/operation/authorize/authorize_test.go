package authorize

import (
	"context"
	"net/url"
	"testing"

	"github.com/go-training/implicit-oauth/pkg/core"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleAuthorizationURLTool(t *testing.T) {
	cfg := core.Configuration{
		Server:  core.ServerConfig{OAuthBaseURL: "https://foursquare.com/oauth2/authenticate"},
		Client:  core.ClientConfig{ID: "client-123", RedirectURL: "http://127.0.0.1:8085/callback"},
		Version: "20141109",
	}
	ctx := core.WithConfiguration(context.Background(), cfg)

	res, err := HandleAuthorizationURLTool(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	txt, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	u, err := url.Parse(txt.Text)
	require.NoError(t, err)
	assert.Equal(t, "foursquare.com", u.Host)
	assert.Equal(t, "client-123", u.Query().Get("client_id"))
	assert.Equal(t, "token", u.Query().Get("response_type"))
}

func TestHandleAuthorizationURLTool_InvalidConfiguration(t *testing.T) {
	ctx := core.WithConfiguration(context.Background(), core.Configuration{})

	res, err := HandleAuthorizationURLTool(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleAuthorizationURLTool_MissingConfiguration(t *testing.T) {
	_, err := HandleAuthorizationURLTool(context.Background(), mcp.CallToolRequest{})
	assert.Error(t, err)
}
