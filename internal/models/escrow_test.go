package models

import "testing"

func TestIsValidEscrowTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusFunded, true},
		{EscrowStatusFunded, EscrowStatusReleased, true},

		// Dispute path
		{EscrowStatusFunded, EscrowStatusDisputed, true},
		{EscrowStatusDisputed, EscrowStatusReleased, true},
		{EscrowStatusDisputed, EscrowStatusRefunded, true},

		// Illegal edges
		{EscrowStatusPending, EscrowStatusReleased, false},
		{EscrowStatusPending, EscrowStatusDisputed, false},
		{EscrowStatusPending, EscrowStatusRefunded, false},
		{EscrowStatusFunded, EscrowStatusRefunded, false},
		{EscrowStatusFunded, EscrowStatusPending, false},
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusReleased, EscrowStatusFunded, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
		{EscrowStatusRefunded, EscrowStatusPending, false},
		{EscrowStatusDisputed, EscrowStatusFunded, false},
		{"nonexistent", EscrowStatusFunded, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidEscrowTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidEscrowTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllEscrowStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		EscrowStatusPending, EscrowStatusFunded, EscrowStatusDisputed,
		EscrowStatusReleased, EscrowStatusRefunded,
	}

	for _, status := range allStatuses {
		if _, ok := ValidEscrowTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidEscrowTransitions map", status)
		}
	}
}

func TestTerminalEscrowStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{EscrowStatusReleased, EscrowStatusRefunded}
	for _, status := range terminal {
		transitions := ValidEscrowTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestStatusForOutcome(t *testing.T) {
	tests := []struct {
		outcome  string
		status   string
		ok       bool
	}{
		{ResolutionOutcomeRelease, EscrowStatusReleased, true},
		{ResolutionOutcomeRefund, EscrowStatusRefunded, true},
		{"split", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		status, ok := StatusForOutcome(tt.outcome)
		if status != tt.status || ok != tt.ok {
			t.Errorf("StatusForOutcome(%q) = (%q, %v), want (%q, %v)", tt.outcome, status, ok, tt.status, tt.ok)
		}
	}
}
