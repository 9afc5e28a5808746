package domain

import (
	sharedDomain "github.com/felixgeelhaar/escrowly/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateTypeProject     = "Project"
	AggregateTypeTransaction = "Transaction"

	RoutingKeyProjectSaved         = "marketplace.project.saved"
	RoutingKeyTransactionConfirmed = "escrow.transaction.confirmed"
	RoutingKeyTopTaskSelected      = "priority.top_task.selected"
)

// ProjectSaved is emitted when a project is created or updated.
type ProjectSaved struct {
	sharedDomain.BaseEvent
	Title  string `json:"title"`
	Status string `json:"status"`
	Budget int64  `json:"budget"`
}

// NewProjectSaved creates a ProjectSaved event.
func NewProjectSaved(p *Project) ProjectSaved {
	return ProjectSaved{
		BaseEvent: sharedDomain.NewBaseEvent(p.ID, AggregateTypeProject, RoutingKeyProjectSaved),
		Title:     p.Title,
		Status:    p.Status.String(),
		Budget:    p.Budget,
	}
}

// TransactionConfirmed is emitted once a simulated transfer settles.
type TransactionConfirmed struct {
	sharedDomain.BaseEvent
	UserID    uuid.UUID `json:"user_id"`
	ProjectID uuid.UUID `json:"project_id,omitempty"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	TxHash    string    `json:"tx_hash"`
}

// NewTransactionConfirmed creates a TransactionConfirmed event.
func NewTransactionConfirmed(tx *Transaction) TransactionConfirmed {
	return TransactionConfirmed{
		BaseEvent: sharedDomain.NewBaseEvent(tx.ID, AggregateTypeTransaction, RoutingKeyTransactionConfirmed),
		UserID:    tx.UserID,
		ProjectID: tx.ProjectID,
		Type:      string(tx.Type),
		Amount:    tx.Amount,
		TxHash:    tx.TxHash,
	}
}

// TopTaskSelected is emitted when a viewer's top task is resolved.
type TopTaskSelected struct {
	sharedDomain.BaseEvent
	ViewerID uuid.UUID `json:"viewer_id"`
	Role     string    `json:"role"`
	Score    int       `json:"score"`
	Urgency  string    `json:"urgency"`
}

// NewTopTaskSelected creates a TopTaskSelected event.
func NewTopTaskSelected(projectID, viewerID uuid.UUID, role Role, score int, urgency string) TopTaskSelected {
	return TopTaskSelected{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, AggregateTypeProject, RoutingKeyTopTaskSelected),
		ViewerID:  viewerID,
		Role:      role.String(),
		Score:     score,
		Urgency:   urgency,
	}
}
