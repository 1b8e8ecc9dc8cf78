package services

import (
	"context"
	"testing"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// seedBooking plants a submitted 45M order (40M package + 5M add-on) with a
// linked project, the shape CreateBooking would leave behind.
func seedBooking(t *testing.T, f *fakeStore) string {
	t.Helper()
	ctx := context.Background()

	customerID, err := f.Create(ctx, booking.DoctypeCustomer, erpnext.Document{
		"customer_name": "Linh & Minh",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	orderID, err := f.Create(ctx, booking.DoctypeSalesOrder, erpnext.Document{
		"customer":         customerID,
		booking.FieldVenue: "Riverside Hall",
		"items": []erpnext.Document{
			{"item_code": "Signature Package", "qty": 1.0, "rate": 40_000_000.0, booking.FieldInCommission: 1},
			{"item_code": "Drone footage", "qty": 1.0, "rate": 5_000_000.0},
		},
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if err := f.Submit(ctx, booking.DoctypeSalesOrder, orderID); err != nil {
		t.Fatalf("submit order: %v", err)
	}
	if _, err := f.Create(ctx, booking.DoctypeProject, erpnext.Document{
		"project_name": "Linh & Minh - " + orderID,
		"customer":     customerID,
		"sales_order":  orderID,
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return orderID
}

func mustDoc(t *testing.T, f *fakeStore, doctype, name string) erpnext.Document {
	t.Helper()
	doc, ok := f.table(doctype)[name]
	if !ok {
		t.Fatalf("%s %s not in store", doctype, name)
	}
	return doc
}
