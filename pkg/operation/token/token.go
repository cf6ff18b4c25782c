// Package token provides MCP tools for inspecting, using and clearing the stored access token.
package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-training/implicit-oauth/pkg/cookie"
	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 64 << 10

// ErrNoToken is returned when the vault holds no access token.
var ErrNoToken = errors.New("no access token stored, run login first")

// ShowAccessTokenTool defines the MCP tool for displaying the stored access token.
var ShowAccessTokenTool = mcp.NewTool("show_access_token",
	mcp.WithDescription("Show the stored access token (masked)"),
)

// ClearAccessTokenTool defines the MCP tool for removing the stored access token.
var ClearAccessTokenTool = mcp.NewTool("clear_access_token",
	mcp.WithDescription("Remove the stored access token"),
)

// AuthenticatedRequestTool defines the MCP tool for calling the API with the stored token.
var AuthenticatedRequestTool = mcp.NewTool("authenticated_request",
	mcp.WithDescription("Make an authenticated GET request against the configured API base URL"),
	mcp.WithString("path",
		mcp.Description("Path relative to the API base URL, e.g. /users/self"),
		mcp.Required(),
	),
)

// HandleShowAccessTokenTool returns the masked token held by the vault in ctx.
func HandleShowAccessTokenTool(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	vault, err := core.VaultFromContext(ctx)
	if err != nil {
		return nil, err
	}
	token, ok, err := vault.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !ok {
		return mcp.NewToolResultError(ErrNoToken.Error()), nil
	}
	return mcp.NewToolResultText(logger.Mask(token)), nil
}

// HandleClearAccessTokenTool removes the token held by the vault in ctx.
func HandleClearAccessTokenTool(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	log := core.LoggerFromCtx(ctx)
	vault, err := core.VaultFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := vault.Clear(ctx); err != nil {
		log.Error("Failed to clear token", "error", err)
		return nil, fmt.Errorf("failed to clear token: %w", err)
	}
	log.Info("Access token cleared")
	return mcp.NewToolResultText("access token cleared"), nil
}

// HandleAuthenticatedRequestTool performs a GET against the API base URL with
// the stored token as bearer credentials and the configured API version.
func HandleAuthenticatedRequestTool(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	log := core.LoggerFromCtx(ctx)
	log.Info("Handling authenticated_request tool")

	path, ok := request.GetArguments()["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing path")
	}
	cfg, err := core.ConfigurationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	vault, err := core.VaultFromContext(ctx)
	if err != nil {
		return nil, err
	}

	target, err := apiURL(cfg, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	token, ok, err := vault.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !ok {
		return mcp.NewToolResultError(ErrNoToken.Error()), nil
	}

	status, body, err := makeRequest(ctx, target, clientFor(ctx, vault, token))
	if err != nil {
		log.Error("HTTP request failed", "error", err)
		return nil, err
	}
	log.Info("HTTP request finished", "status", status)
	return mcp.NewToolResultText(fmt.Sprintf("status: %d\n%s", status, body)), nil
}

// apiURL resolves path against the API base URL and appends the version parameter.
func apiURL(cfg core.Configuration, path string) (*url.URL, error) {
	base, err := url.Parse(cfg.Server.APIBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.Server.APIBaseURL)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("path must be relative to the api base url")
	}

	u := base.JoinPath(ref.Path)
	q := ref.Query()
	if cfg.Version != "" {
		q.Set("v", cfg.Version)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// clientFor returns a bearer client whose cookies land in the shared jar, so
// the next authorization attempt clears them with the rest of the session.
func clientFor(ctx context.Context, vault core.Vault, token string) *http.Client {
	var client *http.Client
	if c, ok := vault.(interface {
		Client(context.Context) *http.Client
	}); ok {
		client = c.Client(ctx)
	} else {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
	client.Jar = cookie.Shared()
	return client
}

// makeRequest sends a GET request to target and returns the status code and
// at most maxResponseBytes of the body.
func makeRequest(ctx context.Context, target *url.URL, client *http.Client) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
