package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/ty"
)

func discoverIndexesToolDefinition() mcp.Tool {
	return mcp.NewTool("discover_indexes",
		mcp.WithDescription("List the index patterns available on the search backend"),
	)
}

func (m *Module) handleDiscoverIndexes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := m.deps.Index.Discover(ctx)
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func setCurrentIndexToolDefinition() mcp.Tool {
	return mcp.NewTool("set_current_index",
		mcp.WithDescription("Set the index pattern used by subsequent searches"),
		mcp.WithString("index_pattern", mcp.Required(), mcp.Description("Index pattern, e.g. 'breeze-v2*'")),
	)
}

func (m *Module) handleSetCurrentIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	pattern, ok := args["index_pattern"].(string)
	if !ok || pattern == "" {
		return nil, fmt.Errorf("index_pattern is required")
	}

	current, err := m.deps.Index.SetCurrent(pattern)
	if err != nil {
		return errorResult(err)
	}
	return textResult(ty.MI{
		"success":       true,
		"current_index": current,
		"message":       "Current index set to " + current,
	})
}

func setAuthTokenToolDefinition() mcp.Tool {
	return mcp.NewTool("set_auth_token",
		mcp.WithDescription("Set the authentication token used for search backend requests"),
		mcp.WithString("auth_token", mcp.Required(), mcp.Description("Cookie token value")),
		mcp.WithNumber("ttl", mcp.Description("Token lifetime in seconds; 0 or absent means it never expires")),
	)
}

func (m *Module) handleSetAuthToken(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return m.setToken(auth.ContextKibana, request)
}

func setPeriscopeAuthTokenToolDefinition() mcp.Tool {
	return mcp.NewTool("set_periscope_auth_token",
		mcp.WithDescription("Set the authentication token used for periscope requests"),
		mcp.WithString("auth_token", mcp.Required(), mcp.Description("Cookie token value")),
		mcp.WithNumber("ttl", mcp.Description("Token lifetime in seconds; 0 or absent means it never expires")),
	)
}

func (m *Module) handleSetPeriscopeAuthToken(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return m.setToken(auth.ContextPeriscope, request)
}

func (m *Module) setToken(context string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	token, ok := args["auth_token"].(string)
	if !ok || token == "" {
		return nil, fmt.Errorf("auth_token is required")
	}

	ttl := time.Duration(argInt(args, "ttl", 0)) * time.Second
	if err := m.deps.Tokens.Set(context, token, ttl); err != nil {
		return errorResult(err)
	}
	return textResult(ty.MI{
		"success": true,
		"message": context + " authentication token set successfully",
	})
}

func healthToolDefinition() mcp.Tool {
	return mcp.NewTool("health",
		mcp.WithDescription("Report gateway health and version"),
	)
}

func (m *Module) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(ty.MI{
		"status":              "ok",
		"version":             m.version,
		"kibana_token_set":    m.deps.Tokens.Has(auth.ContextKibana),
		"periscope_token_set": m.deps.Tokens.Has(auth.ContextPeriscope),
	})
}
