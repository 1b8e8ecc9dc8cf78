package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/services"
)

type fakeCreator struct {
	result services.CreateBookingResult
	err    error
	got    services.CreateBookingInput
}

func (f *fakeCreator) CreateBooking(ctx context.Context, in services.CreateBookingInput) (services.CreateBookingResult, error) {
	f.got = in
	return f.result, f.err
}

type fakeMilestone struct {
	result services.AddMilestoneResult
	err    error
	got    services.AddMilestoneInput
}

func (f *fakeMilestone) AddMilestone(ctx context.Context, in services.AddMilestoneInput) (services.AddMilestoneResult, error) {
	f.got = in
	return f.result, f.err
}

type fakeEditor struct {
	venueErr  error
	addonsErr error
	teamErr   error
	gotVenue  string
	gotLines  []booking.DesiredLine
	gotTeam   booking.TeamAssignments
}

func (f *fakeEditor) UpdateVenue(ctx context.Context, bookingID, venue string) error {
	f.gotVenue = venue
	return f.venueErr
}

func (f *fakeEditor) UpdateAddons(ctx context.Context, bookingID string, desired []booking.DesiredLine) error {
	f.gotLines = desired
	return f.addonsErr
}

func (f *fakeEditor) UpdateTeam(ctx context.Context, bookingID string, team booking.TeamAssignments) error {
	f.gotTeam = team
	return f.teamErr
}

type fakeDeleter struct {
	report services.DeleteReport
	err    error
	got    string
}

func (f *fakeDeleter) DeleteBooking(ctx context.Context, bookingID string) (services.DeleteReport, error) {
	f.got = bookingID
	return f.report, f.err
}

type handlerFakes struct {
	creator   *fakeCreator
	milestone *fakeMilestone
	editor    *fakeEditor
	deleter   *fakeDeleter
}

func newTestRouter(t *testing.T) (*gin.Engine, *handlerFakes) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	fakes := &handlerFakes{
		creator:   &fakeCreator{},
		milestone: &fakeMilestone{},
		editor:    &fakeEditor{},
		deleter:   &fakeDeleter{},
	}
	h := NewBookingHandler(log, fakes.creator, fakes.milestone, fakes.editor, fakes.deleter)

	r := gin.New()
	r.POST("/api/bookings", h.CreateBooking)
	r.POST("/api/bookings/:id/milestones", h.AddMilestone)
	r.PATCH("/api/bookings/:id/venue", h.UpdateVenue)
	r.PATCH("/api/bookings/:id/addons", h.UpdateAddons)
	r.PATCH("/api/bookings/:id/team", h.UpdateTeam)
	r.DELETE("/api/bookings/:id", h.DeleteBooking)
	return r, fakes
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler(t *testing.T) {
	r, fakes := newTestRouter(t)
	fakes.creator.result = services.CreateBookingResult{
		BookingID:      "SO-0001",
		CustomerID:     "CUST-0001",
		ProjectID:      "PROJ-0001",
		CommissionBase: 43_000_000,
	}

	w := doRequest(r, http.MethodPost, "/api/bookings", `{
		"customer_name": "Linh & Minh",
		"package_item": "Signature Package",
		"package_price": 40000000,
		"addons": [{"item_name": "Photo album", "price": 3000000, "include_in_commission": true}],
		"venue": "Riverside Hall",
		"event_date": "2026-06-15",
		"team": {"lead": "EMP-0001", "assistants": ["EMP-0002"]}
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: want=201 got=%d body=%s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp["booking_id"] != "SO-0001" {
		t.Fatalf("booking_id: %v", resp["booking_id"])
	}
	if fakes.creator.got.EventDate.Format("2006-01-02") != "2026-06-15" {
		t.Fatalf("event date not parsed: %v", fakes.creator.got.EventDate)
	}
	if fakes.creator.got.Team.Lead != "EMP-0001" || fakes.creator.got.Team.Assistants[0] != "EMP-0002" {
		t.Fatalf("team not mapped: %+v", fakes.creator.got.Team)
	}
}

func TestCreateBookingRejectsUnknownFields(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/bookings", `{"customer_name": "x", "surprise": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestCreateBookingRejectsBadDate(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/bookings", `{"customer_name": "x", "event_date": "15/06/2026"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestTeamRejectsTooManyAssistants(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPatch, "/api/bookings/SO-0001/team",
		`{"assistants": ["a", "b", "c", "d", "e", "f"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestAddMilestoneHandler(t *testing.T) {
	r, fakes := newTestRouter(t)
	fakes.milestone.result = services.AddMilestoneResult{
		InvoiceID:     "ACC-SINV-0001",
		PaymentID:     "PE-0001",
		PercentBilled: 50,
		Status:        booking.StatusToBill,
	}

	w := doRequest(r, http.MethodPost, "/api/bookings/SO-0001/milestones",
		`{"amount": 22500000, "invoice_date": "2026-07-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if fakes.milestone.got.BookingID != "SO-0001" {
		t.Fatalf("booking id from path: got %q", fakes.milestone.got.BookingID)
	}
	if fakes.milestone.got.Amount != 22_500_000 {
		t.Fatalf("amount: got %v", fakes.milestone.got.Amount)
	}
}

func TestErrorCodeStatusMapping(t *testing.T) {
	cases := []struct {
		code booking.ErrorCode
		want int
	}{
		{booking.CodeValidation, http.StatusBadRequest},
		{booking.CodeNotFound, http.StatusNotFound},
		{booking.CodeStoreConflict, http.StatusConflict},
		{booking.CodeConstraintViolation, http.StatusUnprocessableEntity},
		{booking.CodeStoreUnavailable, http.StatusServiceUnavailable},
		{booking.CodePartialFailure, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r, fakes := newTestRouter(t)
		fakes.milestone.err = booking.NewError(tc.code, "Booking.AddMilestone", "boom", nil)
		w := doRequest(r, http.MethodPost, "/api/bookings/SO-0001/milestones", `{"amount": 1}`)
		if w.Code != tc.want {
			t.Fatalf("%s: status want=%d got=%d", tc.code, tc.want, w.Code)
		}
		var env map[string]map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: envelope: %v", tc.code, err)
		}
		if env["error"]["code"] != string(tc.code) {
			t.Fatalf("%s: code in body: %v", tc.code, env["error"]["code"])
		}
	}
}

func TestUpdateAddonsHandler(t *testing.T) {
	r, fakes := newTestRouter(t)
	w := doRequest(r, http.MethodPatch, "/api/bookings/SO-0001/addons",
		`{"lines": [{"item_code": "Drone footage", "qty": 2, "rate": 5000000}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if len(fakes.editor.gotLines) != 1 || fakes.editor.gotLines[0].Qty != 2 {
		t.Fatalf("lines not mapped: %+v", fakes.editor.gotLines)
	}
}

func TestDeleteBookingHandlerReportsPartialProgress(t *testing.T) {
	r, fakes := newTestRouter(t)
	fakes.deleter.report = services.DeleteReport{
		Deleted: []services.DeletedDocument{
			{Doctype: booking.DoctypePaymentEntry, Name: "PE-0001"},
		},
		FailedStep: "remove Sales Invoice ACC-SINV-0001",
	}
	be := booking.NewError(booking.CodePartialFailure, "Booking.Delete", "store down", nil)
	be.Step = "remove Sales Invoice ACC-SINV-0001"
	fakes.deleter.err = be

	w := doRequest(r, http.MethodDelete, "/api/bookings/SO-0001", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", w.Code)
	}
	var resp struct {
		Deleted    []services.DeletedDocument `json:"deleted_documents"`
		FailedStep string                     `json:"failed_at_step"`
		Error      map[string]any             `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if len(resp.Deleted) != 1 || resp.Deleted[0].Name != "PE-0001" {
		t.Fatalf("report should ride along: %+v", resp)
	}
	if resp.Error["code"] != string(booking.CodePartialFailure) {
		t.Fatalf("error code: %v", resp.Error["code"])
	}
}

func TestDeleteBookingHandler(t *testing.T) {
	r, fakes := newTestRouter(t)
	fakes.deleter.report = services.DeleteReport{
		Deleted: []services.DeletedDocument{
			{Doctype: booking.DoctypeSalesOrder, Name: "SO-0001"},
		},
	}
	w := doRequest(r, http.MethodDelete, "/api/bookings/SO-0001", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if fakes.deleter.got != "SO-0001" {
		t.Fatalf("booking id from path: got %q", fakes.deleter.got)
	}
}
