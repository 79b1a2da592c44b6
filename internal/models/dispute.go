package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute statuses. under_review is an optional moderator step: a dispute may be
// resolved straight from open, or after a moderator has taken the case.
const (
	DisputeStatusOpen            = "open"
	DisputeStatusUnderReview     = "under_review"
	DisputeStatusResolvedRelease = "resolved_release"
	DisputeStatusResolvedRefund  = "resolved_refund"
)

var ValidDisputeTransitions = map[string][]string{
	DisputeStatusOpen:            {DisputeStatusUnderReview, DisputeStatusResolvedRelease, DisputeStatusResolvedRefund},
	DisputeStatusUnderReview:     {DisputeStatusResolvedRelease, DisputeStatusResolvedRefund},
	DisputeStatusResolvedRelease: {},
	DisputeStatusResolvedRefund:  {},
}

func IsValidDisputeTransition(from, to string) bool {
	allowed, ok := ValidDisputeTransitions[from]
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

func IsDisputeResolved(status string) bool {
	return status == DisputeStatusResolvedRelease || status == DisputeStatusResolvedRefund
}

// DisputeStatusForOutcome maps a resolution outcome to the terminal dispute status.
func DisputeStatusForOutcome(outcome string) (string, bool) {
	switch outcome {
	case ResolutionOutcomeRelease:
		return DisputeStatusResolvedRelease, true
	case ResolutionOutcomeRefund:
		return DisputeStatusResolvedRefund, true
	default:
		return "", false
	}
}

type Dispute struct {
	ID             uuid.UUID  `json:"id"`
	EscrowID       uuid.UUID  `json:"escrow_id"`
	ChatID         uuid.UUID  `json:"chat_id"`
	InitiatorID    uuid.UUID  `json:"initiator_id"`
	RespondentID   uuid.UUID  `json:"respondent_id"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
	Details        string     `json:"details"`
	EvidenceURLs   []string   `json:"evidence_urls,omitempty"`
	ModeratorID    *uuid.UUID `json:"moderator_id,omitempty"`
	ModeratorNotes *string    `json:"moderator_notes,omitempty"`
	Resolution     *string    `json:"resolution,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}
