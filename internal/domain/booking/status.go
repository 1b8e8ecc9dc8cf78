package booking

import "strings"

// OrderStatus is the billing-driven order state. Delivery is forced to 100%
// at creation time so the visible status only ever moves with billing.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "Draft"
	StatusToBill    OrderStatus = "To Bill"
	StatusCompleted OrderStatus = "Completed"
)

func NormalizeStatus(s string) OrderStatus {
	return OrderStatus(strings.TrimSpace(s))
}

func (s OrderStatus) Known() bool {
	switch s {
	case StatusDraft, StatusToBill, StatusCompleted:
		return true
	default:
		return false
	}
}

// rank orders statuses along the only legal direction of travel.
func (s OrderStatus) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusToBill:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to target is a legal
// forward-only transition. A status never regresses.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if !s.Known() || !target.Known() {
		return false
	}
	return target.rank() > s.rank()
}

// StatusForPercentBilled maps an accumulated billing percentage on a
// submitted order to its expected status.
func StatusForPercentBilled(percentBilled float64) OrderStatus {
	if percentBilled >= 100 {
		return StatusCompleted
	}
	return StatusToBill
}

// Project stages.
const (
	StageOnboarding = "Onboarding"
	StageCompleted  = "Completed"
)
