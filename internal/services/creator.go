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

// Creation step names, reported on failure so the caller knows exactly how
// far the pipeline got. Earlier steps are never rolled back automatically;
// step_customer is safe to retry (idempotent on the natural key), the rest
// need a re-query first.
const (
	StepCustomer    = "customer"
	StepContacts    = "contacts"
	StepOrder       = "order"
	StepSubmitOrder = "submit_order"
	StepDelivery    = "delivery"
	StepProject     = "project"
)

type CreateBookingInput struct {
	CustomerName string
	Email        string
	Phone        string
	ExtraEmails  []string

	PackageItem  string
	PackagePrice float64
	AddOns       []booking.AddOn

	Venue     string
	EventDate time.Time
	TaxMode   string // sales taxes and charges template name, empty = no tax
	Team      booking.TeamAssignments
}

type CreateBookingResult struct {
	BookingID      string
	CustomerID     string
	OrderID        string
	ProjectID      string
	CustomerReused bool
	CommissionBase float64
}

// CreatorService orchestrates multi-step booking creation:
// customer -> contacts -> order -> submit -> delivery -> project.
type CreatorService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error)
}

type creatorService struct {
	store   erpnext.Client
	catalog CatalogService
	log     *logger.Logger
	now     func() time.Time
}

func NewCreatorService(store erpnext.Client, catalog CatalogService, baseLog *logger.Logger) CreatorService {
	return &creatorService{
		store:   store,
		catalog: catalog,
		log:     baseLog.With("service", "CreatorService"),
		now:     time.Now,
	}
}

func (s *creatorService) CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	const op = "Booking.Create"
	var out CreateBookingResult

	if err := validateCreateInput(op, in); err != nil {
		return out, err
	}

	// Step 1: customer, idempotent on the natural key.
	customerID, reused, err := s.ensureCustomer(ctx, in)
	if err != nil {
		return out, stepFailure(op, StepCustomer, err)
	}
	out.CustomerID = customerID
	out.CustomerReused = reused

	// Step 2: auxiliary contacts. Best effort only; a failure here is logged
	// and never aborts the booking.
	s.createContacts(ctx, customerID, in)

	// Step 3 is pure computation.
	out.CommissionBase = booking.ComputeCommissionBase(in.PackagePrice, in.AddOns)

	// Step 4: draft order with one line per package/add-on.
	orderID, err := s.createOrder(ctx, customerID, in)
	if err != nil {
		return out, stepFailure(op, StepOrder, err)
	}
	out.OrderID = orderID
	out.BookingID = orderID

	// Step 5: submit, the forward-only move to "To Bill".
	if err := s.store.Submit(ctx, booking.DoctypeSalesOrder, orderID); err != nil {
		return out, stepFailure(op, StepSubmitOrder, storeErr(op, booking.DoctypeSalesOrder, orderID, err))
	}

	// Step 6: mark fully delivered so visible status is governed purely by
	// billing, never delivery.
	if err := s.store.RunMethod(ctx, "frappe.client.set_value", map[string]any{
		"doctype":   booking.DoctypeSalesOrder,
		"name":      orderID,
		"fieldname": "per_delivered",
		"value":     100,
	}, nil); err != nil {
		return out, stepFailure(op, StepDelivery, storeErr(op, booking.DoctypeSalesOrder, orderID, err))
	}

	// Step 7: project linked to order + customer.
	projectID, err := s.createProject(ctx, customerID, orderID, in)
	if err != nil {
		return out, stepFailure(op, StepProject, err)
	}
	out.ProjectID = projectID

	s.log.Info("booking created",
		"booking_id", out.BookingID,
		"customer", customerID,
		"customer_reused", reused,
		"project", projectID,
		"commission_base", out.CommissionBase,
	)
	return out, nil
}

func validateCreateInput(op string, in CreateBookingInput) error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return booking.NewError(booking.CodeValidation, op, "missing customer name", nil)
	}
	if strings.TrimSpace(in.PackageItem) == "" {
		return booking.NewError(booking.CodeValidation, op, "missing package item", nil)
	}
	if in.PackagePrice <= 0 {
		return booking.NewError(booking.CodeValidation, op, "package price must be positive", nil)
	}
	for _, a := range in.AddOns {
		if strings.TrimSpace(a.ItemName) == "" {
			return booking.NewError(booking.CodeValidation, op, "add-on missing item name", nil)
		}
		if a.Price < 0 {
			return booking.NewError(booking.CodeValidation, op, fmt.Sprintf("negative add-on price for %s", a.ItemName), nil)
		}
	}
	return nil
}

func (s *creatorService) ensureCustomer(ctx context.Context, in CreateBookingInput) (string, bool, error) {
	const op = "Booking.Create.ensureCustomer"
	name := strings.TrimSpace(in.CustomerName)

	existing, err := s.store.List(ctx, booking.DoctypeCustomer,
		erpnext.Filters{"customer_name": name}, []string{"name", "customer_name"})
	if err != nil {
		return "", false, storeErr(op, booking.DoctypeCustomer, name, err)
	}
	if len(existing) > 0 {
		return existing[0].Str("name"), true, nil
	}

	doc := erpnext.Document{
		"customer_name": name,
		"customer_type": "Individual",
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		doc["email_id"] = e
	}
	if p := strings.TrimSpace(in.Phone); p != "" {
		doc["mobile_no"] = p
	}
	id, err := s.store.Create(ctx, booking.DoctypeCustomer, doc)
	if err != nil {
		return "", false, storeErr(op, booking.DoctypeCustomer, name, err)
	}
	return id, false, nil
}

func (s *creatorService) createContacts(ctx context.Context, customerID string, in CreateBookingInput) {
	for _, email := range in.ExtraEmails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		_, err := s.store.Create(ctx, booking.DoctypeContact, erpnext.Document{
			"first_name": in.CustomerName,
			"email_ids": []erpnext.Document{
				{"email_id": email, "is_primary": 1},
			},
			"links": []erpnext.Document{
				{"link_doctype": booking.DoctypeCustomer, "link_name": customerID},
			},
		})
		if err != nil {
			s.log.Warn("contact creation failed (continuing)", "email", email, "error", err)
		}
	}
}

func (s *creatorService) createOrder(ctx context.Context, customerID string, in CreateBookingInput) (string, error) {
	const op = "Booking.Create.createOrder"

	items := []erpnext.Document{{
		"item_code":               in.PackageItem,
		"qty":                     1,
		"rate":                    in.PackagePrice,
		booking.FieldInCommission: 1,
	}}
	for _, a := range in.AddOns {
		itemCode, err := s.catalog.EnsureItem(ctx, a.ItemName)
		if err != nil {
			return "", err
		}
		qty := a.Qty
		if qty <= 0 {
			qty = 1
		}
		inCommission := 0
		if a.IncludeInCommission {
			inCommission = 1
		}
		items = append(items, erpnext.Document{
			"item_code":               itemCode,
			"qty":                     qty,
			"rate":                    a.Price,
			booking.FieldInCommission: inCommission,
		})
	}

	doc := erpnext.Document{
		"customer": customerID,
		"items":    items,
	}
	if !in.EventDate.IsZero() {
		doc["delivery_date"] = in.EventDate.Format("2006-01-02")
	}
	if v := strings.TrimSpace(in.Venue); v != "" {
		doc[booking.FieldVenue] = v
	}
	if t := strings.TrimSpace(in.TaxMode); t != "" {
		doc["taxes_and_charges"] = t
	}

	id, err := s.store.Create(ctx, booking.DoctypeSalesOrder, doc)
	if err != nil {
		return "", storeErr(op, booking.DoctypeSalesOrder, "", err)
	}
	return id, nil
}

func (s *creatorService) createProject(ctx context.Context, customerID, orderID string, in CreateBookingInput) (string, error) {
	const op = "Booking.Create.createProject"

	stage := booking.StageCompleted
	if in.EventDate.After(s.now()) {
		stage = booking.StageOnboarding
	}

	doc := erpnext.Document{
		"project_name":     fmt.Sprintf("%s - %s", in.CustomerName, orderID),
		"customer":         customerID,
		"sales_order":      orderID,
		booking.FieldStage: stage,
	}
	for k, v := range in.Team.Fields() {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		doc[k] = v
	}
	if !in.EventDate.IsZero() {
		doc["expected_end_date"] = in.EventDate.Format("2006-01-02")
	}

	id, err := s.store.Create(ctx, booking.DoctypeProject, doc)
	if err != nil {
		return "", storeErr(op, booking.DoctypeProject, "", err)
	}
	return id, nil
}

// stepFailure tags an error with the failing pipeline step.
func stepFailure(op, step string, err error) error {
	if err == nil {
		return nil
	}
	if be := booking.AsError(err); be != nil {
		if be.Step == "" {
			be.Step = step
		}
		if be.Op == "" {
			be.Op = op
		}
		return err
	}
	be := booking.NewError(booking.CodeStoreUnavailable, op, err.Error(), err)
	be.Step = step
	return be
}
