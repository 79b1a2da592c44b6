package models

import "testing"

func TestIsValidDisputeTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Direct resolution
		{DisputeStatusOpen, DisputeStatusResolvedRelease, true},
		{DisputeStatusOpen, DisputeStatusResolvedRefund, true},

		// Moderator review step
		{DisputeStatusOpen, DisputeStatusUnderReview, true},
		{DisputeStatusUnderReview, DisputeStatusResolvedRelease, true},
		{DisputeStatusUnderReview, DisputeStatusResolvedRefund, true},

		// Illegal edges
		{DisputeStatusUnderReview, DisputeStatusOpen, false},
		{DisputeStatusResolvedRelease, DisputeStatusResolvedRefund, false},
		{DisputeStatusResolvedRefund, DisputeStatusResolvedRelease, false},
		{DisputeStatusResolvedRelease, DisputeStatusOpen, false},
		{DisputeStatusResolvedRefund, DisputeStatusUnderReview, false},
		{"cancelled", DisputeStatusResolvedRefund, false},
		{DisputeStatusOpen, "cancelled", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidDisputeTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidDisputeTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalDisputeStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{DisputeStatusResolvedRelease, DisputeStatusResolvedRefund}
	for _, status := range terminal {
		transitions := ValidDisputeTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
		if !IsDisputeResolved(status) {
			t.Errorf("IsDisputeResolved(%q) = false, want true", status)
		}
	}

	if IsDisputeResolved(DisputeStatusOpen) {
		t.Error("IsDisputeResolved(open) = true, want false")
	}
	if IsDisputeResolved(DisputeStatusUnderReview) {
		t.Error("IsDisputeResolved(under_review) = true, want false")
	}
}

func TestDisputeStatusForOutcome(t *testing.T) {
	tests := []struct {
		outcome string
		status  string
		ok      bool
	}{
		{ResolutionOutcomeRelease, DisputeStatusResolvedRelease, true},
		{ResolutionOutcomeRefund, DisputeStatusResolvedRefund, true},
		{"dismiss", "", false},
	}
	for _, tt := range tests {
		status, ok := DisputeStatusForOutcome(tt.outcome)
		if status != tt.status || ok != tt.ok {
			t.Errorf("DisputeStatusForOutcome(%q) = (%q, %v), want (%q, %v)", tt.outcome, status, ok, tt.status, tt.ok)
		}
	}
}
