// Package resources implements MCP resource handlers for content rebalancing.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (pairdoc://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/history"
)

// BalanceURI addresses the analysis of the project containing cwd.
const BalanceURI = "pairdoc://project/balance"

// HistoryURI addresses the recent run history.
const HistoryURI = "pairdoc://history/recent"

// Handler manages pairdoc resource endpoints.
type Handler struct {
	engine  *balance.Engine
	history *history.Store // nullable
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(e *balance.Engine, hs *history.Store) *Handler {
	return &Handler{engine: e, history: hs}
}

// BalanceResource returns the MCP resource definition for the balance analysis.
func (h *Handler) BalanceResource() mcp.Resource {
	return mcp.NewResource(
		BalanceURI,
		"Content Balance",
		mcp.WithResourceDescription("Balance score and move plan for the current project's document pair"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleBalance returns the current analysis as JSON.
func (h *Handler) HandleBalance(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := findRoot(h.engine)
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	a := h.engine.Analyze(root)
	if a.HasMissing() {
		return errorResource(req.Params.URI, "missing "+strings.Join(a.MissingDocuments, ", ")), nil
	}
	return jsonResource(req.Params.URI, a)
}

// HistoryResource returns the MCP resource definition for recent runs.
func (h *Handler) HistoryResource() mcp.Resource {
	return mcp.NewResource(
		HistoryURI,
		"Rebalance History",
		mcp.WithResourceDescription("The 20 most recent analyze and rebalance runs"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleHistory returns recent runs as JSON.
func (h *Handler) HandleHistory(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.history == nil {
		return errorResource(req.Params.URI, "run history is disabled"), nil
	}
	runs, err := h.history.Recent("", 20)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, runs)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

// findRoot walks up from cwd looking for either document.
func findRoot(e *balance.Engine) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	files := e.Config().Files

	current := dir
	for {
		for _, name := range []string{files.Structured, files.Narrative} {
			if _, err := os.Stat(filepath.Join(current, name)); err == nil {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}
