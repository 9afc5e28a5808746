package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common escrowly workflows.
func RegisterPrompts(srv *mcp.Server, _ ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("daily_triage").
		Description("Work through the projects that need attention today, most urgent first.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Daily Triage",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me decide what to work on in my escrow projects.

1. Call priority.top to find the single most urgent project.
2. Call priority.explain on it and tell me which rules pushed it to the top.
3. Read escrowly://priority/ranked and list the next three projects with their urgency.
4. Check escrowly://points/balance. If a project waits on escrow funding, say whether my balance covers its budget.

Suggest one concrete next action per project.`,
						},
					},
				},
			}, nil
		})

	return nil
}
