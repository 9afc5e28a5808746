// Package mcp exposes escrowly's priority, project and points operations
// as MCP tools, resources and prompts.
package mcp

import (
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
)

// ToolDependencies provides handlers and context for MCP tools.
type ToolDependencies struct {
	App *cli.App
}

// ToolNames lists every tool RegisterCLITools installs.
var ToolNames = []string{
	"priority.top",
	"priority.rank",
	"priority.explain",
	"project.list",
	"project.save",
	"points.balance",
	"points.record",
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	t := &toolset{app: deps.App}
	registerPriorityTools(srv, t)
	registerProjectTools(srv, t)
	registerPointsTools(srv, t)
	return nil
}
