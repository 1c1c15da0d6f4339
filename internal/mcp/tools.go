package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *sdkmcp.Server, sessions SessionService, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ping",
		Description: "Check that the server is reachable",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ PingParams) (*sdkmcp.CallToolResult, any, error) {
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: "pong"}},
		}, nil, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_session",
		Description: "Start a sorting session for a seed lot and begin batching its images",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in StartSessionParams) (*sdkmcp.CallToolResult, any, error) {
		sess, err := sessions.StartSession(ctx, in.SeedLot)
		if err != nil {
			return toolError(logger, "start_session", err)
		}
		return toolResult(StartSessionResult{
			SessionID: sess.ID,
			Message:   fmt.Sprintf("Sorting session started for seed lot '%s'", sess.Label),
		})
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "stop_session",
		Description: "Stop a session. Queued images are flushed before the session is recorded.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
		sess, err := sessions.StopSession(ctx, in.SessionID)
		if err != nil {
			return toolError(logger, "stop_session", err)
		}
		return toolResult(toSessionResult(sess, 0))
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_item",
		Description: "Queue an image on an active session for classification",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SubmitItemParams) (*sdkmcp.CallToolResult, any, error) {
		if err := sessions.SubmitItem(ctx, in.SessionID, in.ItemID); err != nil {
			return toolError(logger, "submit_item", err)
		}
		return toolResult(MessageResult{Message: "Image received."})
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_session_stats",
		Description: "Get counters for an active or finished session",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
		stats, err := sessions.GetSessionStats(ctx, in.SessionID)
		if err != nil {
			return toolError(logger, "get_session_stats", err)
		}
		return toolResult(toStatsResult(stats))
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_sampled_items",
		Description: "List the image ids persisted as samples for a session",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
		items, err := sessions.SampledItems(ctx, in.SessionID)
		if err != nil {
			return toolError(logger, "get_sampled_items", err)
		}
		if items == nil {
			items = []string{}
		}
		return toolResult(SampledItemsResult{SampledImages: items})
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_sessions",
		Description: "List finished sessions from the historical ledger",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListSessionsParams) (*sdkmcp.CallToolResult, any, error) {
		summaries, err := sessions.ListHistoricalSessions(ctx)
		if err != nil {
			return toolError(logger, "list_sessions", err)
		}
		out := ListSessionsResult{Sessions: make([]SummaryResult, 0, len(summaries))}
		for _, sum := range summaries {
			out.Sessions = append(out.Sessions, toSummaryResult(sum))
		}
		return toolResult(out)
	})
}

func toolResult(payload any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// toolError reports domain errors as tool results so clients can read the
// code. Anything else is returned as a plain error.
func toolError(logger *slog.Logger, tool string, err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := MapError(err)
	if apiErr == nil {
		logger.Error("tool failed", "tool", tool, "error", err)
		return nil, nil, err
	}
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
