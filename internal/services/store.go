package services

import (
	"context"
	"fmt"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
)

// storeErr maps a raw store failure onto the booking error taxonomy.
func storeErr(op, doctype, name string, err error) error {
	if err == nil {
		return nil
	}
	if be := booking.AsError(err); be != nil {
		return err
	}
	code := booking.CodeStoreUnavailable
	switch {
	case erpnext.IsNotFound(err):
		code = booking.CodeNotFound
	case erpnext.IsConflict(err):
		code = booking.CodeStoreConflict
	case erpnext.IsValidation(err):
		code = booking.CodeValidation
	}
	be := booking.NewError(code, op, err.Error(), err)
	be.Doctype = doctype
	be.Name = name
	return be
}

func getOrder(ctx context.Context, store erpnext.Client, op, orderID string) (booking.Order, error) {
	doc, err := store.Get(ctx, booking.DoctypeSalesOrder, orderID)
	if err != nil {
		return booking.Order{}, storeErr(op, booking.DoctypeSalesOrder, orderID, err)
	}
	return booking.OrderFromDocument(doc), nil
}

func getProjectForOrder(ctx context.Context, store erpnext.Client, op, orderID string) (booking.Project, error) {
	docs, err := store.List(ctx, booking.DoctypeProject, erpnext.Filters{"sales_order": orderID}, nil)
	if err != nil {
		return booking.Project{}, storeErr(op, booking.DoctypeProject, "", err)
	}
	if len(docs) == 0 {
		be := booking.NewError(booking.CodeNotFound, op, fmt.Sprintf("no project linked to order %s", orderID), nil)
		be.Doctype = booking.DoctypeProject
		return booking.Project{}, be
	}
	return booking.ProjectFromDocument(docs[0]), nil
}

// listInvoices returns the order's invoices oldest-created first, the order
// the cascade deleter tears them down in.
func listInvoices(ctx context.Context, store erpnext.Client, op, orderID string) ([]booking.Invoice, error) {
	docs, err := store.List(ctx, booking.DoctypeSalesInvoice,
		erpnext.Filters{"custom_sales_order": orderID},
		[]string{"name", "docstatus", "grand_total", "outstanding_amount", "creation"})
	if err != nil {
		return nil, storeErr(op, booking.DoctypeSalesInvoice, "", err)
	}
	out := make([]booking.Invoice, 0, len(docs))
	for _, d := range docs {
		out = append(out, booking.InvoiceFromDocument(d))
	}
	return out, nil
}

func listPayments(ctx context.Context, store erpnext.Client, op, invoiceID string) ([]booking.Payment, error) {
	docs, err := store.List(ctx, booking.DoctypePaymentEntry,
		erpnext.Filters{"custom_sales_invoice": invoiceID},
		[]string{"name", "docstatus", "paid_amount"})
	if err != nil {
		return nil, storeErr(op, booking.DoctypePaymentEntry, "", err)
	}
	out := make([]booking.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, booking.PaymentFromDocument(d))
	}
	return out, nil
}
