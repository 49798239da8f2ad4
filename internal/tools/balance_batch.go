package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/discovery"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// DefaultMinScore is the balance score at or above which batch runs skip a pair.
const DefaultMinScore = 0.7

// BatchTool handles the balance_batch MCP tool.
type BatchTool struct {
	engine  *balance.Engine
	history *history.Store // nullable
	logger  *slog.Logger
}

// NewBatchTool creates a BatchTool. hs may be nil.
func NewBatchTool(e *balance.Engine, hs *history.Store, logger *slog.Logger) *BatchTool {
	return &BatchTool{engine: e, history: hs, logger: orDiscard(logger)}
}

// Definition returns the MCP tool definition for registration.
func (t *BatchTool) Definition() mcp.Tool {
	return mcp.NewTool("balance_batch",
		mcp.WithDescription(
			"Find every project under a root directory and rebalance those whose "+
				"balance score is below min_score. Defaults to a dry run.",
		),
		mcp.WithString("root",
			mcp.Description("Directory to search. Defaults to the detected project root."),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Pairs scoring at or above this are skipped (default 0.7)."),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Only report plans (default true)."),
		),
	)
}

// Handle processes the balance_batch tool call.
func (t *BatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minScore := req.GetFloat("min_score", DefaultMinScore)
	if minScore < 0 || minScore > 1 {
		return mcp.NewToolResultError(fmt.Sprintf("min_score must be between 0 and 1, got %v", minScore)), nil
	}
	dryRun := req.GetBool("dry_run", true)

	files := t.engine.Config().Files
	root, err := resolveDir(req.GetString("root", ""), files)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	dirs, err := discovery.FindPairs(root, files)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(dirs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No projects found under %s.", root)), nil
	}

	res := t.engine.Batch(dirs, minScore, balance.BatchOptions{DryRun: dryRun})

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Batch Rebalance\n\nRoot: %s\nThreshold: %.2f\n\n", root, minScore)
	sb.WriteString(balance.FormatBatch(res, dryRun))
	for _, o := range res.Outcomes {
		recordRun(t.history, t.logger, history.ParamsForOutcome(o, dryRun))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
