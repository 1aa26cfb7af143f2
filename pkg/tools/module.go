// Package tools exposes the log-investigation operations as MCP tools.
package tools

import (
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/log/impl/periscope"
	"github.com/bascanada/loggate/pkg/service"
	"github.com/bascanada/loggate/pkg/ty"
)

// Deps carries the services the tool handlers delegate to. Periscope may be
// nil when no periscope backend is configured; its tools then report an
// error instead of registering a dead backend.
type Deps struct {
	Logs      *service.LogService
	Session   *service.SessionService
	Index     *service.IndexService
	Correlate *service.CorrelationService
	Periscope *periscope.Client
	Tokens    *auth.Store
}

// Module registers the investigation tools on an MCP server.
type Module struct {
	deps    Deps
	version string
	logger  *zap.Logger
}

// New creates the tools module.
func New(deps Deps, version string, logger *zap.Logger) (*Module, error) {
	if deps.Logs == nil || deps.Session == nil || deps.Index == nil || deps.Correlate == nil {
		return nil, fmt.Errorf("tools module requires log, session, index and correlation services")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("tools module requires a token store")
	}
	return &Module{
		deps:    deps,
		version: version,
		logger:  logger.Named("tools"),
	}, nil
}

// GetTools returns all MCP tools for the module.
func (m *Module) GetTools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: searchLogsToolDefinition(), Handler: m.handleSearchLogs},
		{Tool: recentLogsToolDefinition(), Handler: m.handleRecentLogs},
		{Tool: analyzeLogsToolDefinition(), Handler: m.handleAnalyzeLogs},
		{Tool: extractErrorsToolDefinition(), Handler: m.handleExtractErrors},
		{Tool: extractSessionToolDefinition(), Handler: m.handleExtractSession},
		{Tool: discoverIndexesToolDefinition(), Handler: m.handleDiscoverIndexes},
		{Tool: setCurrentIndexToolDefinition(), Handler: m.handleSetCurrentIndex},
		{Tool: setAuthTokenToolDefinition(), Handler: m.handleSetAuthToken},
		{Tool: setPeriscopeAuthTokenToolDefinition(), Handler: m.handleSetPeriscopeAuthToken},
		{Tool: periscopeSearchToolDefinition(), Handler: m.handlePeriscopeSearch},
		{Tool: periscopeErrorsToolDefinition(), Handler: m.handlePeriscopeErrors},
		{Tool: periscopeStreamsToolDefinition(), Handler: m.handlePeriscopeStreams},
		{Tool: correlateToolDefinition(), Handler: m.handleCorrelate},
		{Tool: healthToolDefinition(), Handler: m.handleHealth},
	}
}

func textResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := ty.ToJSONStringIndent(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: data},
		},
	}, nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: err.Error()},
		},
	}, nil
}

func argString(args map[string]interface{}, key, def string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return def
}

// argInt accepts JSON numbers and numeric strings.
func argInt(args map[string]interface{}, key string, def int) int {
	switch val := args[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func argBool(args map[string]interface{}, key string, def bool) bool {
	switch val := args[key].(type) {
	case bool:
		return val
	case string:
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func argStrings(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
