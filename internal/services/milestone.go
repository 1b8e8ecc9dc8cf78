package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type AddMilestoneInput struct {
	BookingID   string
	Amount      float64
	InvoiceDate time.Time
}

type AddMilestoneResult struct {
	InvoiceID     string
	PaymentID     string
	PercentBilled float64
	Status        booking.OrderStatus
}

// MilestoneService appends one invoice+payment pair to a booking. The pair is
// a two-document saga with a single compensating action: a payment failure
// after the invoice exists rolls the invoice back (cancel + delete), restoring
// the pre-milestone state.
type MilestoneService interface {
	AddMilestone(ctx context.Context, in AddMilestoneInput) (AddMilestoneResult, error)
}

type milestoneService struct {
	store erpnext.Client
	log   *logger.Logger
}

func NewMilestoneService(store erpnext.Client, baseLog *logger.Logger) MilestoneService {
	return &milestoneService{
		store: store,
		log:   baseLog.With("service", "MilestoneService"),
	}
}

func (s *milestoneService) AddMilestone(ctx context.Context, in AddMilestoneInput) (AddMilestoneResult, error) {
	const op = "Booking.AddMilestone"
	var out AddMilestoneResult

	if strings.TrimSpace(in.BookingID) == "" {
		return out, booking.NewError(booking.CodeValidation, op, "missing booking id", nil)
	}
	if in.Amount <= 0 {
		return out, booking.NewError(booking.CodeValidation, op, "milestone amount must be positive", nil)
	}

	order, err := getOrder(ctx, s.store, op, in.BookingID)
	if err != nil {
		return out, err
	}
	if order.DocStatus != 1 {
		be := booking.NewError(booking.CodeStoreConflict, op, "order is not submitted", nil)
		be.Doctype = booking.DoctypeSalesOrder
		be.Name = order.Name
		return out, be
	}
	if remaining := order.RemainingBalance(); in.Amount > remaining+0.01 {
		be := booking.NewError(booking.CodeValidation, op,
			fmt.Sprintf("amount %.2f exceeds remaining balance %.2f", in.Amount, remaining), nil)
		be.Doctype = booking.DoctypeSalesOrder
		be.Name = order.Name
		return out, be
	}
	percentBefore := order.PercentBilled

	invoiceID, err := s.createInvoice(ctx, order, in)
	if err != nil {
		return out, err
	}

	if err := s.store.Submit(ctx, booking.DoctypeSalesInvoice, invoiceID); err != nil {
		return out, s.rollbackInvoice(ctx, op, invoiceID, false,
			storeErr(op, booking.DoctypeSalesInvoice, invoiceID, err))
	}

	// The submitted invoice is authoritative for what is actually owed;
	// store-side tax/rounding at submit time can differ from the requested
	// amount, so the caller's figure is never trusted for allocation.
	invDoc, err := s.store.Get(ctx, booking.DoctypeSalesInvoice, invoiceID)
	if err != nil {
		return out, s.rollbackInvoice(ctx, op, invoiceID, true,
			storeErr(op, booking.DoctypeSalesInvoice, invoiceID, err))
	}
	invoice := booking.InvoiceFromDocument(invDoc)

	paymentID, err := s.createAndSubmitPayment(ctx, order, invoice)
	if err != nil {
		return out, s.rollbackInvoice(ctx, op, invoiceID, true, err)
	}

	after, err := getOrder(ctx, s.store, op, in.BookingID)
	if err != nil {
		return out, err
	}
	if after.PercentBilled <= percentBefore {
		be := booking.NewError(booking.CodeConsistency, op,
			fmt.Sprintf("percent billed did not increase (%.2f -> %.2f)", percentBefore, after.PercentBilled), nil)
		be.Doctype = booking.DoctypeSalesOrder
		be.Name = order.Name
		return out, be
	}

	out = AddMilestoneResult{
		InvoiceID:     invoiceID,
		PaymentID:     paymentID,
		PercentBilled: after.PercentBilled,
		Status:        after.Status,
	}
	s.log.Info("milestone recorded",
		"booking_id", in.BookingID,
		"invoice", invoiceID,
		"payment", paymentID,
		"percent_billed", after.PercentBilled,
	)
	return out, nil
}

func (s *milestoneService) createInvoice(ctx context.Context, order booking.Order, in AddMilestoneInput) (string, error) {
	const op = "Booking.AddMilestone.createInvoice"

	itemCode := ""
	if len(order.Lines) > 0 {
		itemCode = order.Lines[0].ItemCode
	}
	doc := erpnext.Document{
		"customer":           order.Customer,
		"custom_sales_order": order.Name,
		"items": []erpnext.Document{{
			"item_code":   itemCode,
			"qty":         1,
			"rate":        in.Amount,
			"sales_order": order.Name,
		}},
	}
	if !in.InvoiceDate.IsZero() {
		doc["set_posting_time"] = 1
		doc["posting_date"] = in.InvoiceDate.Format("2006-01-02")
	}

	id, err := s.store.Create(ctx, booking.DoctypeSalesInvoice, doc)
	if err != nil {
		return "", storeErr(op, booking.DoctypeSalesInvoice, "", err)
	}
	return id, nil
}

func (s *milestoneService) createAndSubmitPayment(ctx context.Context, order booking.Order, invoice booking.Invoice) (string, error) {
	const op = "Booking.AddMilestone.createPayment"

	paymentID, err := s.store.Create(ctx, booking.DoctypePaymentEntry, erpnext.Document{
		"payment_type":         "Receive",
		"party_type":           booking.DoctypeCustomer,
		"party":                order.Customer,
		"paid_amount":          invoice.Outstanding,
		"received_amount":      invoice.Outstanding,
		"custom_sales_invoice": invoice.Name,
		"references": []erpnext.Document{{
			"reference_doctype": booking.DoctypeSalesInvoice,
			"reference_name":    invoice.Name,
			"allocated_amount":  invoice.Outstanding,
		}},
	})
	if err != nil {
		return "", storeErr(op, booking.DoctypePaymentEntry, "", err)
	}

	if err := s.store.Submit(ctx, booking.DoctypePaymentEntry, paymentID); err != nil {
		// The draft payment is ours to clean up before compensating the
		// invoice; a leftover draft would block the invoice delete.
		if delErr := s.store.Delete(ctx, booking.DoctypePaymentEntry, paymentID); delErr != nil && !erpnext.IsNotFound(delErr) {
			return "", compensationFailure(op, booking.DoctypePaymentEntry, paymentID, err, delErr)
		}
		return "", storeErr(op, booking.DoctypePaymentEntry, paymentID, err)
	}
	return paymentID, nil
}

// rollbackInvoice compensates the half-finished milestone: cancel (when
// submitted), delete the ledger rows cancellation leaves behind, then delete
// the invoice, returning the original failure. A failed compensation is
// surfaced as its own partial-failure error, never swallowed.
func (s *milestoneService) rollbackInvoice(ctx context.Context, op, invoiceID string, submitted bool, cause error) error {
	if submitted {
		if err := s.store.Cancel(ctx, booking.DoctypeSalesInvoice, invoiceID); err != nil && !erpnext.IsNotFound(err) {
			return compensationFailure(op, booking.DoctypeSalesInvoice, invoiceID, cause, err)
		}
		// The store refuses to delete a voucher while its ledger rows exist.
		rows, err := s.store.List(ctx, booking.DoctypeGLEntry,
			erpnext.Filters{"voucher_no": invoiceID}, []string{"name"})
		if err != nil {
			return compensationFailure(op, booking.DoctypeSalesInvoice, invoiceID, cause, err)
		}
		for _, row := range rows {
			if err := s.store.Delete(ctx, booking.DoctypeGLEntry, row.Str("name")); err != nil && !erpnext.IsNotFound(err) {
				return compensationFailure(op, booking.DoctypeSalesInvoice, invoiceID, cause, err)
			}
		}
	}
	if err := s.store.Delete(ctx, booking.DoctypeSalesInvoice, invoiceID); err != nil && !erpnext.IsNotFound(err) {
		return compensationFailure(op, booking.DoctypeSalesInvoice, invoiceID, cause, err)
	}
	s.log.Warn("milestone rolled back", "invoice", invoiceID, "cause", cause.Error())
	return cause
}

func compensationFailure(op, doctype, name string, cause, compErr error) error {
	be := booking.NewError(booking.CodePartialFailure, op,
		fmt.Sprintf("manual cleanup required: %s %s could not be rolled back after %v (compensation failed: %v)",
			doctype, name, cause, compErr), cause)
	be.Doctype = doctype
	be.Name = name
	be.Hint = fmt.Sprintf("cancel and delete %s %s before retrying", doctype, name)
	return be
}
