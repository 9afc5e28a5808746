package domain

import "strings"

// Status is the lifecycle status of a marketplace project.
type Status string

const (
	// StatusOpenForProposals means the listing is accepting contractor proposals.
	StatusOpenForProposals Status = "openForProposals"
	// StatusAgreementPending means a proposal was accepted and the contract awaits confirmation.
	StatusAgreementPending Status = "agreementPending"
	// StatusWorkReady means escrow is funded and the contractor can start.
	StatusWorkReady Status = "workReady"
	// StatusInProgress means the contractor is delivering work.
	StatusInProgress Status = "inProgress"
	// StatusPendingAcceptance means a delivery awaits client acceptance.
	StatusPendingAcceptance Status = "pendingAcceptance"
	// StatusCompleted means all milestones were released.
	StatusCompleted Status = "completed"
	// StatusUnknown is the result of normalising an unrecognised status string.
	StatusUnknown Status = "unknown"
)

// legacyStatusLabels maps the Japanese display labels used by the web client onto statuses.
var legacyStatusLabels = map[string]Status{
	"募集中":   StatusOpenForProposals,
	"契約確認中": StatusAgreementPending,
	"合意待ち":  StatusAgreementPending,
	"作業開始可": StatusWorkReady,
	"着手可能":  StatusWorkReady,
	"作業中":   StatusInProgress,
	"進行中":   StatusInProgress,
	"承認待ち":  StatusPendingAcceptance,
	"検収待ち":  StatusPendingAcceptance,
	"完了":    StatusCompleted,
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpenForProposals, StatusAgreementPending, StatusWorkReady,
		StatusInProgress, StatusPendingAcceptance, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further work happens in this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// NormalizeStatus maps English keys (any case) and legacy display labels onto a Status.
// Unrecognised input yields StatusUnknown.
func NormalizeStatus(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusUnknown
	}
	if s, ok := legacyStatusLabels[trimmed]; ok {
		return s
	}
	for _, s := range AllStatuses() {
		if strings.EqualFold(trimmed, s.String()) {
			return s
		}
	}
	return StatusUnknown
}

// ParseStatus is the strict variant of NormalizeStatus.
func ParseStatus(raw string) (Status, error) {
	s := NormalizeStatus(raw)
	if s == StatusUnknown {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// AllStatuses returns every valid status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusOpenForProposals,
		StatusAgreementPending,
		StatusWorkReady,
		StatusInProgress,
		StatusPendingAcceptance,
		StatusCompleted,
	}
}
