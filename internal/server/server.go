// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the engine and the optional run
// history and injects them into the tools, prompts, and resources.
// No business logic lives here, only wiring.
package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/config"
	"github.com/HendryAvila/pairdoc/internal/history"
	"github.com/HendryAvila/pairdoc/internal/prompts"
	"github.com/HendryAvila/pairdoc/internal/resources"
	"github.com/HendryAvila/pairdoc/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the history database and must be
// called on shutdown. It is always non-nil and safe to call even if
// history init failed.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// stdout carries the MCP transport, so the engine prints nothing.
	engine := balance.NewEngine(cfg, logger, nil)

	s := server.NewMCPServer(
		"pairdoc",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Run history ---
	//
	// History is an independent subsystem: if it fails to initialize,
	// the balance tools keep working without it.

	cleanup := noop
	hs := openHistory(cfg, logger)
	if hs != nil {
		cleanup = func() {
			if err := hs.Close(); err != nil {
				logger.Warn("history store close", "error", err)
			}
		}
	}

	// --- Register balance tools ---

	analyzeTool := tools.NewAnalyzeTool(engine, hs, logger)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	applyTool := tools.NewApplyTool(engine, hs, logger)
	s.AddTool(applyTool.Definition(), applyTool.Handle)

	batchTool := tools.NewBatchTool(engine, hs, logger)
	s.AddTool(batchTool.Definition(), batchTool.Handle)

	if hs != nil {
		historyTool := tools.NewHistoryTool(hs, cfg.Files)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}

	// --- Register prompts ---

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	sweepPrompt := prompts.NewSweepPrompt()
	s.AddPrompt(sweepPrompt.Definition(), sweepPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(engine, hs)
	s.AddResource(resourceHandler.BalanceResource(), resourceHandler.HandleBalance)
	s.AddResource(resourceHandler.HistoryResource(), resourceHandler.HandleHistory)

	logger.Info("mcp server ready", "version", Version, "history", hs != nil)
	return s, cleanup, nil
}

// openHistory returns nil when history is disabled or cannot be opened.
func openHistory(cfg config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	hs, err := history.New(history.Config{DataDir: cfg.History.DataDir})
	if err != nil {
		logger.Warn("run history disabled", "error", err)
		return nil
	}
	return hs
}

// noop is the cleanup used when history is disabled.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use pairdoc effectively.
func serverInstructions() string {
	return `You have access to pairdoc, a content rebalancing MCP server.

## What pairdoc does
A project keeps two companion documents: a structured store (context.json)
for machine-readable facts such as status, configuration, and task lists,
and a narrative document (CONTEXT.md) for prose such as vision,
rationale, and guidelines. Over time content drifts into the wrong one.
pairdoc classifies every item, reports a balance score between 0 and 1,
and moves misplaced items to the document that suits them.

## WHEN TO USE pairdoc
- The user asks to tidy, reorganize, or audit project context documents
- You notice long prose inside context.json or bullet lists of settings in CONTEXT.md
- Before a large context update, to start from a balanced pair

## Tools
- balance_analyze: read-only report with the balance score and planned moves
- balance_apply: performs the moves. Defaults to dry_run=true
- balance_batch: analyzes every project under a root and rebalances those below min_score
- balance_history: recent runs with scores and backup files

## Rules
1. ALWAYS run balance_analyze (or balance_apply with dry_run=true) first
2. Show the user the plan and get explicit approval before dry_run=false
3. Every applied run writes timestamped backups of both documents and
   appends a change_log entry to the structured store
4. change_log is never moved
5. To undo a run, copy the backup files listed by balance_history back in place`
}
