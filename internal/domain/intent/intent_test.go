package intent

import "testing"

func TestIsValid(t *testing.T) {
	for _, it := range []Intent{Structured, Unstructured, Both} {
		if !it.IsValid() {
			t.Errorf("%q should be valid", it)
		}
	}
	if Intent("hybrid").IsValid() {
		t.Error("unknown intent should be invalid")
	}
	if Intent("").IsValid() {
		t.Error("empty intent should be invalid")
	}
}

func TestToolEligibility(t *testing.T) {
	tests := []struct {
		it        Intent
		stats     bool
		knowledge bool
	}{
		{Structured, true, false},
		{Unstructured, false, true},
		{Both, true, true},
	}
	for _, tt := range tests {
		if got := tt.it.NeedsStats(); got != tt.stats {
			t.Errorf("%q NeedsStats = %v, want %v", tt.it, got, tt.stats)
		}
		if got := tt.it.NeedsKnowledge(); got != tt.knowledge {
			t.Errorf("%q NeedsKnowledge = %v, want %v", tt.it, got, tt.knowledge)
		}
	}
}
