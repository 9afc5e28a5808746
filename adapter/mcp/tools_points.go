package mcp

import (
	"context"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

type balanceInput struct{}

type pointsRecordInput struct {
	Type      string `json:"type" jsonschema:"required"`
	Amount    int64  `json:"amount" jsonschema:"required"`
	ProjectID string `json:"project_id,omitempty"`
}

func registerPointsTools(srv *mcp.Server, t *toolset) {
	srv.Tool("points.balance").
		Description("Return the current user's points balance").
		Handler(t.balance)

	srv.Tool("points.record").
		Description("Record a points transfer and wait for chain confirmation").
		Handler(t.record)
}

func (t *toolset) balance(ctx context.Context, _ balanceInput) (*queries.BalanceResult, error) {
	if t.app.GetBalanceHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer("")
	if err != nil {
		return nil, err
	}
	return t.app.GetBalanceHandler.Handle(ctx, v.ViewerID)
}

func (t *toolset) record(ctx context.Context, in pointsRecordInput) (*domain.Transaction, error) {
	if t.app.RecordTransactionHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer("")
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(in.Type)
	if err != nil {
		return nil, err
	}
	projectID, err := parseOptionalUUID(in.ProjectID)
	if err != nil {
		return nil, err
	}
	return t.app.RecordTransactionHandler.Handle(ctx, commands.RecordTransactionCommand{
		UserID:    v.ViewerID,
		ProjectID: projectID,
		Type:      txType,
		Amount:    in.Amount,
	})
}
