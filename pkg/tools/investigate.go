package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func extractSessionToolDefinition() mcp.Tool {
	return mcp.NewTool("extract_session_id",
		mcp.WithDescription("Find the payment session id for an order by scanning callStartPayment logs"),
		mcp.WithString("order_id", mcp.Required(), mcp.Description("Order identifier to look up")),
		mcp.WithNumber("max_logs", mcp.Description("How many matching logs to inspect (default: 3)")),
	)
}

func (m *Module) handleExtractSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	orderID, ok := args["order_id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("order_id is required")
	}

	result, err := m.deps.Session.ExtractSessionID(ctx, orderID, argInt(args, "max_logs", 0))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}

func correlateToolDefinition() mcp.Tool {
	return mcp.NewTool("correlate_with_code",
		mcp.WithDescription("Find logs matching an error message and extract source code locations from stack traces"),
		mcp.WithString("error_message", mcp.Required(), mcp.Description("Error message to search for")),
		mcp.WithString("repo_path", mcp.Description("Local repository path; when set, surrounding source lines are included")),
		mcp.WithString("index_pattern", mcp.Description("Index pattern to search (default: current index)")),
	)
}

func (m *Module) handleCorrelate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	errorMessage, ok := args["error_message"].(string)
	if !ok || errorMessage == "" {
		return nil, fmt.Errorf("error_message is required")
	}

	result, err := m.deps.Correlate.CorrelateWithCode(ctx, errorMessage,
		argString(args, "repo_path", ""),
		argString(args, "index_pattern", ""))
	if err != nil {
		return errorResult(err)
	}
	return textResult(result)
}
