package services

import (
	"context"
	"strings"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

// updateChildItemsMethod is the store's bulk line-item reconciliation method
// for submitted orders.
const updateChildItemsMethod = "erpnext.controllers.accounts_controller.update_child_qty_rate"

// EditorService applies venue, add-on and team changes to an existing
// booking under the billing-state constraints.
type EditorService interface {
	UpdateVenue(ctx context.Context, bookingID, venue string) error
	UpdateAddons(ctx context.Context, bookingID string, desired []booking.DesiredLine) error
	UpdateTeam(ctx context.Context, bookingID string, team booking.TeamAssignments) error
}

type editorService struct {
	store   erpnext.Client
	catalog CatalogService
	log     *logger.Logger
}

func NewEditorService(store erpnext.Client, catalog CatalogService, baseLog *logger.Logger) EditorService {
	return &editorService{
		store:   store,
		catalog: catalog,
		log:     baseLog.With("service", "EditorService"),
	}
}

// UpdateVenue writes the single venue field. No billing side effects, and a
// no-op when the value is unchanged.
func (s *editorService) UpdateVenue(ctx context.Context, bookingID, venue string) error {
	const op = "Booking.UpdateVenue"

	venue = strings.TrimSpace(venue)
	if venue == "" {
		return booking.NewError(booking.CodeValidation, op, "missing venue", nil)
	}
	order, err := getOrder(ctx, s.store, op, bookingID)
	if err != nil {
		return err
	}
	if order.Venue == venue {
		return nil
	}
	if err := s.store.RunMethod(ctx, "frappe.client.set_value", map[string]any{
		"doctype":   booking.DoctypeSalesOrder,
		"name":      order.Name,
		"fieldname": booking.FieldVenue,
		"value":     venue,
	}, nil); err != nil {
		return storeErr(op, booking.DoctypeSalesOrder, order.Name, err)
	}
	s.log.Info("venue updated", "booking_id", bookingID, "venue", venue)
	return nil
}

// UpdateAddons reconciles the order's lines against the caller's desired
// final set. Existing lines match by row identity, new ones by item code;
// lines missing from the desired set are left alone (removal is unsupported).
// New lines always append regardless of billed percentage; a rate decrease on
// a billed line fails with a non-retryable constraint violation.
func (s *editorService) UpdateAddons(ctx context.Context, bookingID string, desired []booking.DesiredLine) error {
	const op = "Booking.UpdateAddons"

	if len(desired) == 0 {
		return booking.NewError(booking.CodeValidation, op, "no desired lines given", nil)
	}
	order, err := getOrder(ctx, s.store, op, bookingID)
	if err != nil {
		return err
	}

	// A brand-new add-on needs its catalog item before it can appear on an
	// order line.
	for i, want := range desired {
		if strings.TrimSpace(want.ItemCode) != "" || strings.TrimSpace(want.ItemName) == "" {
			continue
		}
		itemCode, err := s.catalog.EnsureItem(ctx, want.ItemName)
		if err != nil {
			return err
		}
		desired[i].ItemCode = itemCode
	}

	plan, err := booking.DiffLines(order.Lines, desired)
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}

	transItems := make([]erpnext.Document, 0, len(plan.Updates)+len(plan.Appends))
	for _, u := range plan.Updates {
		transItems = append(transItems, erpnext.Document{
			"docname":   u.RowName,
			"item_code": u.ItemCode,
			"qty":       u.Qty,
			"rate":      u.Rate,
		})
	}
	for _, a := range plan.Appends {
		qty := a.Qty
		if qty <= 0 {
			qty = 1
		}
		inCommission := 0
		if a.IncludeInCommission {
			inCommission = 1
		}
		transItems = append(transItems, erpnext.Document{
			"item_code":               a.ItemCode,
			"qty":                     qty,
			"rate":                    a.Rate,
			booking.FieldInCommission: inCommission,
		})
	}

	if err := s.store.RunMethod(ctx, updateChildItemsMethod, map[string]any{
		"parent_doctype": booking.DoctypeSalesOrder,
		"parent_name":    order.Name,
		"trans_items":    transItems,
	}, nil); err != nil {
		return storeErr(op, booking.DoctypeSalesOrder, order.Name, err)
	}
	s.log.Info("order lines reconciled",
		"booking_id", bookingID,
		"updated", len(plan.Updates),
		"appended", len(plan.Appends),
	)
	return nil
}

// UpdateTeam writes the employee-role references onto the project. Last write
// wins; billing state never constrains it.
func (s *editorService) UpdateTeam(ctx context.Context, bookingID string, team booking.TeamAssignments) error {
	const op = "Booking.UpdateTeam"

	project, err := getProjectForOrder(ctx, s.store, op, bookingID)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, booking.DoctypeProject, project.Name, team.Fields()); err != nil {
		return storeErr(op, booking.DoctypeProject, project.Name, err)
	}
	s.log.Info("team updated", "booking_id", bookingID, "project", project.Name)
	return nil
}
