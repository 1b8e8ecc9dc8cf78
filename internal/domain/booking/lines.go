package booking

import "fmt"

// DesiredLine is the caller's view of one order line after an add-on edit.
// RowName pins an existing child row; otherwise the line matches by item
// code, and a line matching nothing is appended.
type DesiredLine struct {
	RowName             string  `json:"row_name"`
	ItemCode            string  `json:"item_code"`
	ItemName            string  `json:"item_name"`
	Qty                 float64 `json:"qty"`
	Rate                float64 `json:"rate"`
	IncludeInCommission bool    `json:"include_in_commission"`
}

// LineUpdate targets an existing child row.
type LineUpdate struct {
	RowName  string
	ItemCode string
	Qty      float64
	Rate     float64
}

// LinePlan is the reconciliation outcome: rows to update in place and lines
// to append. Lines present on the order but absent from the desired set are
// left untouched — removing a partially-billed line is rejected by the store,
// so add-on removal is unsupported outright.
type LinePlan struct {
	Updates []LineUpdate
	Appends []DesiredLine
}

func (p LinePlan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Appends) == 0
}

// DiffLines reconciles the order's current lines against the desired set.
// A rate decrease on a line that has already been partially billed fails as
// a non-retryable constraint violation; appends are always allowed.
func DiffLines(current []OrderLine, desired []DesiredLine) (LinePlan, error) {
	const op = "Booking.DiffLines"
	var plan LinePlan

	byRow := make(map[string]OrderLine, len(current))
	byItem := make(map[string]OrderLine, len(current))
	for _, line := range current {
		if line.RowName != "" {
			byRow[line.RowName] = line
		}
		if line.ItemCode != "" {
			if _, dup := byItem[line.ItemCode]; !dup {
				byItem[line.ItemCode] = line
			}
		}
	}

	for _, want := range desired {
		if want.ItemCode == "" && want.RowName == "" {
			return LinePlan{}, NewError(CodeValidation, op, "desired line missing item_code", nil)
		}
		if want.Qty <= 0 {
			want.Qty = 1
		}
		if want.Rate < 0 {
			return LinePlan{}, NewError(CodeValidation, op, fmt.Sprintf("negative rate for %s", want.ItemCode), nil)
		}

		have, found := byRow[want.RowName]
		if !found {
			have, found = byItem[want.ItemCode]
		}
		if !found {
			plan.Appends = append(plan.Appends, want)
			continue
		}

		if want.Rate < have.Rate && have.BilledAmount > 0 {
			err := NewError(CodeConstraintViolation, op,
				fmt.Sprintf("cannot decrease rate on billed line %s (%.0f -> %.0f)", have.ItemCode, have.Rate, want.Rate), nil)
			err.Doctype = DoctypeSalesOrder
			err.Name = have.RowName
			err.Hint = "billed lines keep their rate; append a correcting line instead"
			return LinePlan{}, err
		}
		if want.Qty == have.Qty && want.Rate == have.Rate {
			continue
		}
		plan.Updates = append(plan.Updates, LineUpdate{
			RowName:  have.RowName,
			ItemCode: have.ItemCode,
			Qty:      want.Qty,
			Rate:     want.Rate,
		})
	}
	return plan, nil
}
