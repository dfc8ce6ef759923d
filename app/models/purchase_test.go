package models

import "testing"

func TestPurchaseCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to completed", PurchaseStatusPending, PurchaseStatusCompleted, true},
		{"pending to failed", PurchaseStatusPending, PurchaseStatusFailed, true},
		{"pending to pending", PurchaseStatusPending, PurchaseStatusPending, false},
		{"completed is final", PurchaseStatusCompleted, PurchaseStatusFailed, false},
		{"failed is final", PurchaseStatusFailed, PurchaseStatusCompleted, false},
		{"pending to garbage", PurchaseStatusPending, "refunded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Purchase{Status: tt.from}
			if got := p.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%q) from %q = %v, want %v", tt.to, tt.from, got, tt.want)
			}
		})
	}
}
