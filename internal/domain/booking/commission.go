package booking

// ComputeCommissionBase is the single shared commission computation used by
// both the create and edit paths. Only opt-in add-ons count toward it; the
// package price always does.
func ComputeCommissionBase(packagePrice float64, addons []AddOn) float64 {
	base := packagePrice
	for _, a := range addons {
		if a.IncludeInCommission {
			base += a.Price * lineQty(a.Qty)
		}
	}
	return base
}

// OrderTotal is the pre-tax order total: package price plus every add-on,
// opt-in or not.
func OrderTotal(packagePrice float64, addons []AddOn) float64 {
	total := packagePrice
	for _, a := range addons {
		total += a.Price * lineQty(a.Qty)
	}
	return total
}

func lineQty(qty float64) float64 {
	if qty <= 0 {
		return 1
	}
	return qty
}
