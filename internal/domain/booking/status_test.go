package booking

import "testing"

func TestStatusTransitionsAreForwardOnly(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusDraft, StatusToBill, true},
		{StatusDraft, StatusCompleted, true},
		{StatusToBill, StatusCompleted, true},
		{StatusToBill, StatusDraft, false},
		{StatusCompleted, StatusToBill, false},
		{StatusCompleted, StatusDraft, false},
		{StatusDraft, StatusDraft, false},
		{StatusToBill, StatusToBill, false},
		{OrderStatus("On Hold"), StatusCompleted, false},
		{StatusDraft, OrderStatus("On Hold"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Fatalf("%s -> %s: want=%v got=%v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestStatusForPercentBilled(t *testing.T) {
	if got := StatusForPercentBilled(0); got != StatusToBill {
		t.Fatalf("0%%: want=%s got=%s", StatusToBill, got)
	}
	if got := StatusForPercentBilled(80); got != StatusToBill {
		t.Fatalf("80%%: want=%s got=%s", StatusToBill, got)
	}
	if got := StatusForPercentBilled(100); got != StatusCompleted {
		t.Fatalf("100%%: want=%s got=%s", StatusCompleted, got)
	}
}
