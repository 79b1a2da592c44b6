package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow statuses
const (
	EscrowStatusPending  = "pending"
	EscrowStatusFunded   = "funded"
	EscrowStatusDisputed = "disputed"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Valid state transitions: from -> []to.
// A dispute can only be filed once funded; there is no edge out of the terminals
// and no timeout-based transition (release_date is informational only).
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:  {EscrowStatusFunded},
	EscrowStatusFunded:   {EscrowStatusReleased, EscrowStatusDisputed},
	EscrowStatusDisputed: {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

func IsValidEscrowTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Escrow struct {
	ID                uuid.UUID  `json:"id"`
	ChatID            uuid.UUID  `json:"chat_id"`
	ImporterID        uuid.UUID  `json:"importer_id"`
	ExporterID        uuid.UUID  `json:"exporter_id"`
	Amount            string     `json:"amount"` // numeric as string
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	TradeDescription  string     `json:"trade_description"`
	ReleaseConditions *string    `json:"release_conditions,omitempty"`
	ReleaseDate       *time.Time `json:"release_date,omitempty"`
	DisputeReason     *string    `json:"dispute_reason,omitempty"`
	ResolutionNotes   *string    `json:"resolution_notes,omitempty"`
	TransactionID     *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Resolution outcomes accepted when settling a disputed escrow.
const (
	ResolutionOutcomeRelease = "release"
	ResolutionOutcomeRefund  = "refund"
)

// StatusForOutcome maps a resolution outcome to the terminal escrow status.
func StatusForOutcome(outcome string) (string, bool) {
	switch outcome {
	case ResolutionOutcomeRelease:
		return EscrowStatusReleased, true
	case ResolutionOutcomeRefund:
		return EscrowStatusRefunded, true
	default:
		return "", false
	}
}
