package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bascanada/loggate/pkg/service"
)

func searchLogsToolDefinition() mcp.Tool {
	return mcp.NewTool("search_logs",
		mcp.WithDescription("Search logs with KQL/Lucene query syntax, time range and level filters"),
		mcp.WithString("query_text", mcp.Required(), mcp.Description("Query text, e.g. 'order-123 AND payment'")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of log entries to return (default: 100)")),
		mcp.WithString("start_time", mcp.Description("Start of time range: RFC3339 timestamp or relative offset like '24h', '7d'")),
		mcp.WithString("end_time", mcp.Description("End of time range: RFC3339 timestamp (default: now)")),
		mcp.WithString("levels", mcp.Description("Comma-separated log levels to include, e.g. 'ERROR,WARN'")),
		mcp.WithString("index_pattern", mcp.Description("Index pattern to search (default: current index)")),
		mcp.WithString("sort_by", mcp.Description("Field to sort on (default: @timestamp)")),
		mcp.WithString("sort_order", mcp.Description("Sort order: asc or desc (default: desc)")),
	)
}

func (m *Module) handleSearchLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	in := service.SearchLogsInput{
		Query:      argString(args, "query_text", ""),
		MaxResults: argInt(args, "max_results", 0),
		StartTime:  argString(args, "start_time", ""),
		EndTime:    argString(args, "end_time", ""),
		Index:      argString(args, "index_pattern", ""),
		SortBy:     argString(args, "sort_by", ""),
		SortOrder:  argString(args, "sort_order", ""),
	}
	if levels := argString(args, "levels", ""); levels != "" {
		for _, level := range strings.Split(levels, ",") {
			if level = strings.TrimSpace(level); level != "" {
				in.Levels = append(in.Levels, level)
			}
		}
	}

	result, err := m.deps.Logs.SearchLogs(ctx, in)
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func recentLogsToolDefinition() mcp.Tool {
	return mcp.NewTool("get_recent_logs",
		mcp.WithDescription("Get the most recent log entries, optionally filtered by level"),
		mcp.WithNumber("count", mcp.Description("Number of entries to return (default: 100)")),
		mcp.WithString("level", mcp.Description("Only return entries of this level, e.g. ERROR")),
		mcp.WithString("index_pattern", mcp.Description("Index pattern to search (default: current index)")),
	)
}

func (m *Module) handleRecentLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	result, err := m.deps.Logs.RecentLogs(ctx,
		argInt(args, "count", 0),
		argString(args, "level", ""),
		argString(args, "index_pattern", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func analyzeLogsToolDefinition() mcp.Tool {
	return mcp.NewTool("analyze_logs",
		mcp.WithDescription("Aggregate log volume over time and by field for a time range"),
		mcp.WithString("time_range", mcp.Description("Range to analyze: <n>h, <n>d, <n>w or <n>m (default: 24h)")),
		mcp.WithString("group_by", mcp.Description("Field to group counts by, e.g. 'level'; only the time histogram is built when omitted")),
		mcp.WithString("index_pattern", mcp.Description("Index pattern to search (default: current index)")),
	)
}

func (m *Module) handleAnalyzeLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	result, err := m.deps.Logs.AnalyzeLogs(ctx,
		argString(args, "time_range", ""),
		argString(args, "group_by", ""),
		argString(args, "index_pattern", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func extractErrorsToolDefinition() mcp.Tool {
	return mcp.NewTool("extract_errors",
		mcp.WithDescription("Extract error-level log entries from the last N hours, with stack traces"),
		mcp.WithNumber("hours", mcp.Description("How many hours back to search (default: 24)")),
		mcp.WithBoolean("include_stack_traces", mcp.Description("Include stack trace fields in results (default: true)")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of errors to return (default: 100)")),
		mcp.WithString("index_pattern", mcp.Description("Index pattern to search (default: current index)")),
	)
}

func (m *Module) handleExtractErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	result, err := m.deps.Logs.ExtractErrors(ctx,
		argInt(args, "hours", 0),
		argBool(args, "include_stack_traces", true),
		argInt(args, "max_results", 0),
		argString(args, "index_pattern", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}
