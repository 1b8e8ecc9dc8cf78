package erpnext

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPError is a failed store call, carrying the HTTP status plus the
// store-side exception type and message when the body parsed.
type HTTPError struct {
	StatusCode int
	ExcType    string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "erpnext: <nil error>"
	}
	if strings.TrimSpace(e.Message) != "" {
		if e.ExcType != "" {
			return fmt.Sprintf("erpnext http %d: %s: %s", e.StatusCode, e.ExcType, e.Message)
		}
		return fmt.Sprintf("erpnext http %d: %s", e.StatusCode, e.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("erpnext http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == 404
}

// IsConflict reports whether the store rejected an invalid state transition
// or a forbidden mutation (e.g. re-submitting a submitted order, deleting a
// document that ledger rows still reference).
func IsConflict(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	if he.StatusCode == 409 {
		return true
	}
	switch he.ExcType {
	case "LinkExistsError", "TimestampMismatchError", "DocstatusTransitionError", "CannotDeleteError":
		return true
	}
	return false
}

// IsValidation reports whether the store rejected the payload itself.
// Frappe signals validation failures with 417 and exc_type ValidationError.
func IsValidation(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	if he.ExcType == "ValidationError" || he.ExcType == "MandatoryError" {
		return true
	}
	return he.StatusCode == 417
}
