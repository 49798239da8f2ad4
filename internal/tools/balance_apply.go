package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// ApplyTool handles the balance_apply MCP tool.
type ApplyTool struct {
	engine  *balance.Engine
	history *history.Store // nullable
	logger  *slog.Logger
}

// NewApplyTool creates an ApplyTool. hs may be nil.
func NewApplyTool(e *balance.Engine, hs *history.Store, logger *slog.Logger) *ApplyTool {
	return &ApplyTool{engine: e, history: hs, logger: orDiscard(logger)}
}

// Definition returns the MCP tool definition for registration.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("balance_apply",
		mcp.WithDescription(
			"Move misplaced content between the structured store and the narrative "+
				"document. Both documents are backed up before any write and a "+
				"change_log entry records the run. Defaults to a dry run; pass "+
				"dry_run=false only after the user has reviewed the plan.",
		),
		mcp.WithString("project_dir",
			mcp.Description("Project directory. Defaults to the detected project root."),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Only report the plan (default true)."),
		),
	)
}

// Handle processes the balance_apply tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dryRun := req.GetBool("dry_run", true)

	dir, err := resolveDir(req.GetString("project_dir", ""), t.engine.Config().Files)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}

	a, r := t.engine.Rebalance(dir, dryRun)
	recordRun(t.history, t.logger, history.ParamsFor(history.KindApply, dir, a, r))

	if a.HasMissing() {
		return mcp.NewToolResultError(fmt.Sprintf(
			"cannot rebalance %s: missing %s", dir, strings.Join(a.MissingDocuments, ", "),
		)), nil
	}

	var sb strings.Builder
	sb.WriteString("# Content Rebalance\n\n")
	if dryRun && a.MoveCount() > 0 {
		sb.WriteString(balance.FormatPlan(a))
		sb.WriteString("\n")
	}
	sb.WriteString(balance.FormatReport(r))
	if dryRun && a.MoveCount() > 0 {
		sb.WriteString("\nNo files were changed. Call again with dry_run=false to apply.\n")
	}

	if !r.Success {
		return mcp.NewToolResultError(sb.String()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}
