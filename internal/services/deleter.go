package services

import (
	"context"
	"fmt"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type DeletedDocument struct {
	Doctype string `json:"doctype"`
	Name    string `json:"name"`
}

// DeleteReport is the first-class result of a cascade delete. Deleted lists
// every document removed, in removal order; FailedStep is empty on full
// success and otherwise names exactly where the pipeline halted. Documents
// already removed stay removed, so the operation is retryable from wherever
// it stopped.
type DeleteReport struct {
	Deleted    []DeletedDocument `json:"deleted_documents"`
	FailedStep string            `json:"failed_at_step,omitempty"`
}

// DeleterService tears a booking down in strict reverse dependency order:
// per invoice (oldest first) its payments, then the invoice, then the order,
// then the project. Ledger rows are deleted before their owning voucher —
// the store refuses to delete a document that ledger rows still reference.
type DeleterService interface {
	DeleteBooking(ctx context.Context, bookingID string) (DeleteReport, error)
}

type deleterService struct {
	store erpnext.Client
	log   *logger.Logger
}

func NewDeleterService(store erpnext.Client, baseLog *logger.Logger) DeleterService {
	return &deleterService{
		store: store,
		log:   baseLog.With("service", "DeleterService"),
	}
}

func (s *deleterService) DeleteBooking(ctx context.Context, bookingID string) (DeleteReport, error) {
	const op = "Booking.Delete"
	var report DeleteReport

	bookingID = booking.NormalizeName(bookingID)
	if bookingID == "" {
		return report, booking.NewError(booking.CodeValidation, op, "missing booking id", nil)
	}

	invoices, err := listInvoices(ctx, s.store, op, bookingID)
	if err != nil {
		return report, err
	}

	for _, invoice := range invoices {
		payments, err := listPayments(ctx, s.store, op, invoice.Name)
		if err != nil {
			return s.halted(report, op, fmt.Sprintf("list payments of %s", invoice.Name), err)
		}
		for _, payment := range payments {
			if err := s.removeVoucher(ctx, booking.DoctypePaymentEntry, payment.Name, &report); err != nil {
				return s.halted(report, op, fmt.Sprintf("remove %s %s", booking.DoctypePaymentEntry, payment.Name), err)
			}
		}
		if err := s.removeVoucher(ctx, booking.DoctypeSalesInvoice, invoice.Name, &report); err != nil {
			return s.halted(report, op, fmt.Sprintf("remove %s %s", booking.DoctypeSalesInvoice, invoice.Name), err)
		}
	}

	if err := s.removeVoucher(ctx, booking.DoctypeSalesOrder, bookingID, &report); err != nil {
		return s.halted(report, op, fmt.Sprintf("remove %s %s", booking.DoctypeSalesOrder, bookingID), err)
	}

	if err := s.removeProject(ctx, bookingID, &report); err != nil {
		return s.halted(report, op, "remove Project", err)
	}

	s.log.Info("booking deleted", "booking_id", bookingID, "documents", len(report.Deleted))
	return report, nil
}

// removeVoucher cancels a submitted document, deletes its ledger rows, then
// deletes the document itself. Idempotent on an already-deleted document.
func (s *deleterService) removeVoucher(ctx context.Context, doctype, name string, report *DeleteReport) error {
	const op = "Booking.Delete.removeVoucher"

	doc, err := s.store.Get(ctx, doctype, name)
	if err != nil {
		if erpnext.IsNotFound(err) {
			return nil // already removed on a previous attempt
		}
		return storeErr(op, doctype, name, err)
	}

	if doc.Int("docstatus") == 1 {
		if err := s.store.Cancel(ctx, doctype, name); err != nil && !erpnext.IsNotFound(err) {
			return storeErr(op, doctype, name, err)
		}
	}

	if err := s.deleteLedgerRows(ctx, name, report); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doctype, name); err != nil && !erpnext.IsNotFound(err) {
		return storeErr(op, doctype, name, err)
	}
	report.Deleted = append(report.Deleted, DeletedDocument{Doctype: doctype, Name: name})
	return nil
}

// deleteLedgerRows removes the GL entries referencing name as voucher.
// Cancellation keeps historical rows around, so they go explicitly first.
func (s *deleterService) deleteLedgerRows(ctx context.Context, voucher string, report *DeleteReport) error {
	const op = "Booking.Delete.deleteLedgerRows"

	rows, err := s.store.List(ctx, booking.DoctypeGLEntry,
		erpnext.Filters{"voucher_no": voucher}, []string{"name"})
	if err != nil {
		return storeErr(op, booking.DoctypeGLEntry, voucher, err)
	}
	for _, row := range rows {
		rowName := row.Str("name")
		if err := s.store.Delete(ctx, booking.DoctypeGLEntry, rowName); err != nil && !erpnext.IsNotFound(err) {
			return storeErr(op, booking.DoctypeGLEntry, rowName, err)
		}
		report.Deleted = append(report.Deleted, DeletedDocument{Doctype: booking.DoctypeGLEntry, Name: rowName})
	}
	return nil
}

func (s *deleterService) removeProject(ctx context.Context, bookingID string, report *DeleteReport) error {
	const op = "Booking.Delete.removeProject"

	docs, err := s.store.List(ctx, booking.DoctypeProject,
		erpnext.Filters{"sales_order": bookingID}, []string{"name"})
	if err != nil {
		return storeErr(op, booking.DoctypeProject, "", err)
	}
	for _, doc := range docs {
		name := doc.Str("name")
		if err := s.store.Delete(ctx, booking.DoctypeProject, name); err != nil && !erpnext.IsNotFound(err) {
			return storeErr(op, booking.DoctypeProject, name, err)
		}
		report.Deleted = append(report.Deleted, DeletedDocument{Doctype: booking.DoctypeProject, Name: name})
	}
	return nil
}

// halted finalizes the report when the pipeline stops: the error names the
// failing step, and everything already removed stays reported.
func (s *deleterService) halted(report DeleteReport, op, step string, err error) (DeleteReport, error) {
	report.FailedStep = step
	if be := booking.AsError(err); be != nil {
		if be.Step == "" {
			be.Step = step
		}
		if be.Hint == "" {
			be.Hint = "already-removed documents stay removed; retry resumes from this step"
		}
	} else {
		wrapped := booking.NewError(booking.CodePartialFailure, op, err.Error(), err)
		wrapped.Step = step
		err = wrapped
	}
	s.log.Warn("cascade delete halted",
		"step", step,
		"deleted_so_far", len(report.Deleted),
		"error", err.Error(),
	)
	return report, err
}
