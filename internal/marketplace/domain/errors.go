package domain

import "errors"

var (
	// ErrProjectNotFound indicates the requested project was not found.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidStatus indicates an unrecognised project status.
	ErrInvalidStatus = errors.New("invalid project status")

	// ErrInvalidRole indicates an unrecognised viewer role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyTitle indicates a project title cannot be empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidBudget indicates a negative budget.
	ErrInvalidBudget = errors.New("budget cannot be negative")

	// ErrInvalidScore indicates an M-Score or S-Score outside 0-100.
	ErrInvalidScore = errors.New("score must be between 0 and 100")

	// ErrInvalidAmount indicates a non-positive transaction amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidTransactionType indicates an unrecognised transaction type.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInsufficientPoints indicates the balance cannot cover a debit.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrNotParticipant indicates the user is neither client nor contractor of the project.
	ErrNotParticipant = errors.New("not a participant of this project")

	// ErrProjectClosed indicates the project is completed and takes no more escrow.
	ErrProjectClosed = errors.New("project is closed")
)
