package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SweepPrompt handles the balance-sweep MCP prompt.
// It instructs the AI to check every project under a root.
type SweepPrompt struct{}

// NewSweepPrompt creates a SweepPrompt.
func NewSweepPrompt() *SweepPrompt {
	return &SweepPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SweepPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("balance-sweep",
		mcp.WithPromptDescription(
			"Check every project under the current directory and list the ones "+
				"whose documents need rebalancing.",
		),
	)
}

// Handle processes the balance-sweep prompt request.
func (p *SweepPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Content balance sweep",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `balance_batch` with dry_run=true to check all my projects.\n\n" +
						"Then:\n" +
						"1. List the projects below the threshold, worst score first\n" +
						"2. Point out any project with missing documents\n" +
						"3. Ask me which projects to rebalance, then run `balance_apply` for each one I pick\n" +
						"4. Finish with `balance_history` so I can see the backups that were written",
				),
			},
		},
	}, nil
}
