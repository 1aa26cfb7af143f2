package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bascanada/loggate/pkg/log/impl/periscope"
	"github.com/bascanada/loggate/pkg/ty"
)

func periscopeSearchToolDefinition() mcp.Tool {
	return mcp.NewTool("search_periscope_logs",
		mcp.WithDescription("Run a SQL query against periscope log streams"),
		mcp.WithString("sql_query", mcp.Required(), mcp.Description("SQL query, e.g. SELECT * FROM \"ziox\" LIMIT 10")),
		mcp.WithString("start_time", mcp.Description("Start of time range: RFC3339 timestamp or relative offset like '24h' (default: 24h)")),
		mcp.WithString("end_time", mcp.Description("End of time range: RFC3339 timestamp (default: now)")),
		mcp.WithString("timezone", mcp.Description("IANA timezone for timestamp parsing (default: UTC)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of rows to return (default: 50)")),
		mcp.WithString("org_identifier", mcp.Description("Organization identifier (default: configured org)")),
	)
}

func (m *Module) handlePeriscopeSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.deps.Periscope == nil {
		return errorResult(fmt.Errorf("periscope backend is not configured"))
	}
	args := request.GetArguments()

	sql, ok := args["sql_query"].(string)
	if !ok || sql == "" {
		return nil, fmt.Errorf("sql_query is required")
	}

	result, err := m.deps.Periscope.Search(ctx, periscope.SearchOptions{
		SQL:        sql,
		StartTime:  argString(args, "start_time", ""),
		EndTime:    argString(args, "end_time", ""),
		Timezone:   argString(args, "timezone", ""),
		MaxResults: argInt(args, "max_results", 0),
		Org:        argString(args, "org_identifier", ""),
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func periscopeErrorsToolDefinition() mcp.Tool {
	return mcp.NewTool("search_periscope_errors",
		mcp.WithDescription("Search a periscope stream for HTTP error responses in the last N hours"),
		mcp.WithNumber("hours", mcp.Description("How many hours back to search (default: 24)")),
		mcp.WithString("stream_name", mcp.Description("Stream to search (default: configured stream)")),
		mcp.WithString("error_codes", mcp.Description("Status code pattern for SQL LIKE, e.g. '5%' (default: >= 400)")),
		mcp.WithString("org_identifier", mcp.Description("Organization identifier (default: configured org)")),
		mcp.WithString("timezone", mcp.Description("IANA timezone for timestamp parsing (default: UTC)")),
	)
}

func (m *Module) handlePeriscopeErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.deps.Periscope == nil {
		return errorResult(fmt.Errorf("periscope backend is not configured"))
	}
	args := request.GetArguments()

	result, err := m.deps.Periscope.SearchErrors(ctx,
		argInt(args, "hours", 0),
		argString(args, "stream_name", ""),
		argString(args, "error_codes", ""),
		argString(args, "org_identifier", ""),
		argString(args, "timezone", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func periscopeStreamsToolDefinition() mcp.Tool {
	return mcp.NewTool("get_periscope_streams",
		mcp.WithDescription("List the log streams available in a periscope organization"),
		mcp.WithString("org_identifier", mcp.Description("Organization identifier (default: configured org)")),
	)
}

func (m *Module) handlePeriscopeStreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.deps.Periscope == nil {
		return errorResult(fmt.Errorf("periscope backend is not configured"))
	}
	args := request.GetArguments()

	streams, err := m.deps.Periscope.Streams(ctx, argString(args, "org_identifier", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(ty.MI{
		"streams": streams,
		"count":   len(streams),
	})
}
