package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/http/response"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/services"
)

type BookingHandler struct {
	log       *logger.Logger
	creator   services.CreatorService
	milestone services.MilestoneService
	editor    services.EditorService
	deleter   services.DeleterService
}

func NewBookingHandler(
	log *logger.Logger,
	creator services.CreatorService,
	milestone services.MilestoneService,
	editor services.EditorService,
	deleter services.DeleterService,
) *BookingHandler {
	return &BookingHandler{
		log:       log,
		creator:   creator,
		milestone: milestone,
		editor:    editor,
		deleter:   deleter,
	}
}

// bindStrict decodes a request body with an explicit field allow-list:
// unknown fields are rejected at the boundary.
func bindStrict(c *gin.Context, out any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

const dateLayout = "2006-01-02"

type teamRequest struct {
	Lead       string   `json:"lead"`
	Support    string   `json:"support"`
	Assistants []string `json:"assistants"`
}

func (t teamRequest) toDomain() (booking.TeamAssignments, error) {
	if len(t.Assistants) > 5 {
		return booking.TeamAssignments{}, fmt.Errorf("at most 5 assistants, got %d", len(t.Assistants))
	}
	out := booking.TeamAssignments{Lead: t.Lead, Support: t.Support}
	copy(out.Assistants[:], t.Assistants)
	return out, nil
}

type createBookingRequest struct {
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	ExtraEmails  []string        `json:"extra_emails"`
	PackageItem  string          `json:"package_item"`
	PackagePrice float64         `json:"package_price"`
	AddOns       []booking.AddOn `json:"addons"`
	Venue        string          `json:"venue"`
	EventDate    string          `json:"event_date"`
	TaxMode      string          `json:"tax_mode"`
	Team         teamRequest     `json:"team"`
}

// POST /api/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := bindStrict(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	team, err := req.Team.toDomain()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var eventDate time.Time
	if req.EventDate != "" {
		eventDate, err = time.Parse(dateLayout, req.EventDate)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	result, err := h.creator.CreateBooking(c.Request.Context(), services.CreateBookingInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		ExtraEmails:  req.ExtraEmails,
		PackageItem:  req.PackageItem,
		PackagePrice: req.PackagePrice,
		AddOns:       req.AddOns,
		Venue:        req.Venue,
		EventDate:    eventDate,
		TaxMode:      req.TaxMode,
		Team:         team,
	})
	if err != nil {
		response.RespondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"booking_id":      result.BookingID,
		"customer_id":     result.CustomerID,
		"project_id":      result.ProjectID,
		"customer_reused": result.CustomerReused,
		"commission_base": result.CommissionBase,
	})
}

type addMilestoneRequest struct {
	Amount      float64 `json:"amount"`
	InvoiceDate string  `json:"invoice_date"`
}

// POST /api/bookings/:id/milestones
func (h *BookingHandler) AddMilestone(c *gin.Context) {
	var req addMilestoneRequest
	if err := bindStrict(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var invoiceDate time.Time
	if req.InvoiceDate != "" {
		var err error
		invoiceDate, err = time.Parse(dateLayout, req.InvoiceDate)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	result, err := h.milestone.AddMilestone(c.Request.Context(), services.AddMilestoneInput{
		BookingID:   c.Param("id"),
		Amount:      req.Amount,
		InvoiceDate: invoiceDate,
	})
	if err != nil {
		response.RespondBookingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"invoice_id":     result.InvoiceID,
		"payment_id":     result.PaymentID,
		"percent_billed": result.PercentBilled,
		"status":         result.Status,
	})
}

type updateVenueRequest struct {
	Venue string `json:"venue"`
}

// PATCH /api/bookings/:id/venue
func (h *BookingHandler) UpdateVenue(c *gin.Context) {
	var req updateVenueRequest
	if err := bindStrict(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.editor.UpdateVenue(c.Request.Context(), c.Param("id"), req.Venue); err != nil {
		response.RespondBookingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type updateAddonsRequest struct {
	Lines []booking.DesiredLine `json:"lines"`
}

// PATCH /api/bookings/:id/addons
func (h *BookingHandler) UpdateAddons(c *gin.Context) {
	var req updateAddonsRequest
	if err := bindStrict(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.editor.UpdateAddons(c.Request.Context(), c.Param("id"), req.Lines); err != nil {
		response.RespondBookingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PATCH /api/bookings/:id/team
func (h *BookingHandler) UpdateTeam(c *gin.Context) {
	var req teamRequest
	if err := bindStrict(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	team, err := req.toDomain()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.editor.UpdateTeam(c.Request.Context(), c.Param("id"), team); err != nil {
		response.RespondBookingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	report, err := h.deleter.DeleteBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		// Partial progress is never silent: the report rides along with the
		// structured error.
		be := booking.AsError(err)
		status := http.StatusInternalServerError
		envelope := gin.H{"deleted_documents": report.Deleted, "failed_at_step": report.FailedStep}
		if be != nil {
			envelope["error"] = response.APIError{
				Message: be.Error(),
				Code:    string(be.Code),
				Step:    be.Step,
				Doctype: be.Doctype,
				Name:    be.Name,
				Hint:    be.Hint,
			}
			if be.Code == booking.CodeValidation {
				status = http.StatusBadRequest
			}
		} else {
			envelope["error"] = response.APIError{Message: err.Error()}
		}
		c.JSON(status, envelope)
		return
	}
	response.RespondOK(c, report)
}
