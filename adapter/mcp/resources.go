package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers read-only views of the viewer's queue and wallet.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	if deps.App == nil {
		return fmt.Errorf("app is required")
	}
	t := &toolset{app: deps.App}

	srv.Resource("escrowly://priority/ranked").
		Name("Ranked Projects").
		Description("The current viewer's projects ordered by priority").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
			ranked, err := t.rank(ctx, rankInput{})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, ranked)
		})

	srv.Resource("escrowly://points/balance").
		Name("Points Balance").
		Description("The current user's points balance").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
			balance, err := t.balance(ctx, balanceInput{})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, balance)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
