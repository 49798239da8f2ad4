package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// HistoryTool handles the balance_history MCP tool.
type HistoryTool struct {
	store *history.Store
	files config.Files
}

// NewHistoryTool creates a HistoryTool. It is only registered when the
// history store opened successfully.
func NewHistoryTool(hs *history.Store, files config.Files) *HistoryTool {
	return &HistoryTool{store: hs, files: files}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("balance_history",
		mcp.WithDescription(
			"List recent analyze and rebalance runs with their balance scores and "+
				"backup files. Use it to find a backup to restore or to track "+
				"how a project's balance changes over time.",
		),
		mcp.WithString("project_dir",
			mcp.Description("Limit to one project directory. Omit for all projects."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum runs to return (default 10)."),
		),
	)
}

// Handle processes the balance_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 10))
	dir := req.GetString("project_dir", "")
	if dir != "" {
		abs, err := resolveDir(dir, t.files)
		if err != nil {
			return nil, fmt.Errorf("resolving project dir: %w", err)
		}
		dir = abs
	}

	runs, err := t.store.Recent(dir, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("# Rebalance History\n\n")
	if stats, err := t.store.Stats(); err == nil {
		fmt.Fprintf(&sb, "%d runs across %d projects, average score %.2f.\n\n",
			stats.TotalRuns, len(stats.Projects), stats.AverageScore)
	}
	sb.WriteString(history.FormatRuns(runs))
	return mcp.NewToolResultText(sb.String()), nil
}
