// Package prompts implements MCP prompt handlers for content rebalancing.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the balance-review MCP prompt.
// It walks the AI through analyze, confirm, apply for one project.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("balance-review",
		mcp.WithPromptDescription(
			"Review where content lives in a project's structured store and "+
				"narrative document, then move misplaced items after you approve the plan.",
		),
		mcp.WithArgument("project_dir",
			mcp.ArgumentDescription("Project directory. Default: the detected project root"),
		),
		mcp.WithArgument("mode",
			mcp.ArgumentDescription(
				"'confirm' (ask before applying) or 'auto' (apply right after the dry run). Default: confirm",
			),
		),
	)
}

// Handle processes the balance-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	dir := ""
	mode := "confirm"
	if args := req.Params.Arguments; args != nil {
		if d, ok := args["project_dir"]; ok {
			dir = d
		}
		if m, ok := args["mode"]; ok && m != "" {
			mode = m
		}
	}

	target := "the current project"
	dirArg := ""
	if dir != "" {
		target = fmt.Sprintf("the project in `%s`", dir)
		dirArg = fmt.Sprintf(" with project_dir='%s'", dir)
	}

	step3 := "3. Show me the plan and wait for my explicit approval before changing anything\n"
	if mode == "auto" {
		step3 = "3. If the dry run succeeded, continue without asking\n"
	}

	return &mcp.GetPromptResult{
		Description: "Review content balance for " + target,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to check whether content in %s sits in the right document.\n\n"+
						"Please:\n"+
						"1. Run `balance_analyze`%s and summarize the balance score and the planned moves\n"+
						"2. Run `balance_apply`%s as a dry run (dry_run=true)\n"+
						"%s"+
						"4. Run `balance_apply` with dry_run=false and report the moved items and backup files\n"+
						"5. Run `balance_analyze` again and confirm the score improved",
					target, dirArg, dirArg, step3,
				)),
			},
		},
	}, nil
}
