package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// AnalyzeTool handles the balance_analyze MCP tool.
// It is read-only: documents are never modified.
type AnalyzeTool struct {
	engine  *balance.Engine
	history *history.Store // nullable
	logger  *slog.Logger
}

// NewAnalyzeTool creates an AnalyzeTool. hs may be nil.
func NewAnalyzeTool(e *balance.Engine, hs *history.Store, logger *slog.Logger) *AnalyzeTool {
	return &AnalyzeTool{engine: e, history: hs, logger: orDiscard(logger)}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("balance_analyze",
		mcp.WithDescription(
			"Analyze a project's structured store and narrative document and "+
				"report which content sits in the wrong document, with a balance "+
				"score between 0 and 1. Read-only: nothing is written.",
		),
		mcp.WithString("project_dir",
			mcp.Description("Project directory. Defaults to the nearest directory "+
				"above cwd that holds either document."),
		),
		mcp.WithString("format",
			mcp.Description("'text' (default) for a readable plan, 'json' for the full analysis."),
			mcp.Enum("text", "json"),
		),
	)
}

// Handle processes the balance_analyze tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := strings.ToLower(strings.TrimSpace(req.GetString("format", "text")))
	if format != "text" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q: use 'text' or 'json'", format)), nil
	}

	dir, err := resolveDir(req.GetString("project_dir", ""), t.engine.Config().Files)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}

	a := t.engine.Analyze(dir)
	recordRun(t.history, t.logger, history.ParamsFor(history.KindAnalyze, dir, a, nil))

	if a.HasMissing() {
		return mcp.NewToolResultError(fmt.Sprintf(
			"cannot analyze %s: missing %s", dir, strings.Join(a.MissingDocuments, ", "),
		)), nil
	}

	if format == "json" {
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling analysis: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	var sb strings.Builder
	sb.WriteString("# Balance Analysis\n\n")
	sb.WriteString(balance.FormatPlan(a))
	if a.MoveCount() > 0 {
		sb.WriteString("\nRun `balance_apply` with dry_run=false to move these items. Backups are written first.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
