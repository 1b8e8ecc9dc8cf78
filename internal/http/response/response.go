package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Step    string `json:"step,omitempty"`
	Doctype string `json:"doctype,omitempty"`
	Name    string `json:"name,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondBookingError maps the booking error taxonomy onto HTTP statuses and
// surfaces the structured detail (failing step, offending document, hint).
func RespondBookingError(c *gin.Context, err error) {
	be := booking.AsError(err)
	if be == nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	c.JSON(statusForCode(be.Code), ErrorEnvelope{Error: APIError{
		Message: be.Error(),
		Code:    string(be.Code),
		Step:    be.Step,
		Doctype: be.Doctype,
		Name:    be.Name,
		Hint:    be.Hint,
	}})
}

func statusForCode(code booking.ErrorCode) int {
	switch code {
	case booking.CodeValidation:
		return http.StatusBadRequest
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeStoreConflict:
		return http.StatusConflict
	case booking.CodeConstraintViolation:
		return http.StatusUnprocessableEntity
	case booking.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
