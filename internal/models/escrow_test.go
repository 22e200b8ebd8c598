package models

import "testing"

func TestIsValidEscrowTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusActive, true},
		{EscrowStatusActive, EscrowStatusReleased, true},
		{EscrowStatusActive, EscrowStatusDisputed, true},
		{EscrowStatusActive, EscrowStatusRefunded, true},

		// Terminal states
		{EscrowStatusReleased, EscrowStatusActive, false},
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusRefunded, EscrowStatusActive, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},

		// Disputed has no modeled exit
		{EscrowStatusDisputed, EscrowStatusReleased, false},
		{EscrowStatusDisputed, EscrowStatusRefunded, false},
		{EscrowStatusDisputed, EscrowStatusActive, false},

		// Nothing re-enters active
		{EscrowStatusActive, EscrowStatusActive, false},
		{EscrowStatusActive, EscrowStatusPending, false},

		// Unknown statuses
		{"nonexistent", EscrowStatusActive, false},
		{EscrowStatusActive, "nonexistent", false},
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

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		EscrowStatusPending, EscrowStatusActive, EscrowStatusReleased,
		EscrowStatusDisputed, EscrowStatusRefunded,
	}

	for _, status := range allStatuses {
		if _, ok := ValidEscrowTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidEscrowTransitions map", status)
		}
	}
}

func TestStatusCodeRoundTrip(t *testing.T) {
	for code := uint8(0); code <= 4; code++ {
		status, ok := EscrowStatusFromCode(code)
		if !ok {
			t.Fatalf("no status for code %d", code)
		}
		back, ok := EscrowStatusCode(status)
		if !ok || back != code {
			t.Errorf("EscrowStatusCode(%q) = %d, want %d", status, back, code)
		}
	}

	if _, ok := EscrowStatusFromCode(5); ok {
		t.Error("code 5 should not map to a status")
	}
	if _, ok := EscrowStatusCode("nonexistent"); ok {
		t.Error("unknown status should not map to a code")
	}
}

func TestEscrowParticipants(t *testing.T) {
	e := &Escrow{
		Client:     "0xCCCC000000000000000000000000000000000001",
		Freelancer: "0xAAAA000000000000000000000000000000000002",
	}

	if !e.IsClient("0xcccc000000000000000000000000000000000001") {
		t.Error("client check should be case-insensitive")
	}
	if !e.IsFreelancer("0xAAAA000000000000000000000000000000000002") {
		t.Error("freelancer address should match")
	}
	if !e.IsParticipant(e.Client) || !e.IsParticipant(e.Freelancer) {
		t.Error("both parties are participants")
	}
	if e.IsParticipant("0xBBBB000000000000000000000000000000000003") {
		t.Error("third party is not a participant")
	}
	if e.IsParticipant("") {
		t.Error("empty address is not a participant")
	}
}
