package booking

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes booking failure semantics across operations.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "validation"
	CodeNotFound            ErrorCode = "not_found"
	CodeStoreConflict       ErrorCode = "store_conflict"
	CodeStoreUnavailable    ErrorCode = "store_unavailable"
	CodePartialFailure      ErrorCode = "partial_failure"
	CodeConstraintViolation ErrorCode = "constraint_violation"
	CodeConsistency         ErrorCode = "consistency"
	CodeInternal            ErrorCode = "internal"
)

// Error is the canonical booking error wrapper. Step names the pipeline step
// that failed inside a multi-step operation; Doctype/Name identify the
// offending store document; Hint carries a remediation hint for callers.
type Error struct {
	Code    ErrorCode
	Op      string
	Step    string
	Doctype string
	Name    string
	Message string
	Hint    string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if op := strings.TrimSpace(e.Op); op != "" {
		b.WriteString(op)
	}
	if step := strings.TrimSpace(e.Step); step != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[step=%s]", step)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(msg)
	}
	if e.Doctype != "" || e.Name != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Doctype, e.Name)
	}
	fmt.Fprintf(&b, " (%s)", e.Code)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a booking error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with booking error semantics. An existing
// *Error keeps its code and gains the operation name when it has none.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Op == "" {
			be.Op = strings.TrimSpace(op)
		}
		return err
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Code == code
}

// CodeOf extracts the booking error code when available.
func CodeOf(err error) ErrorCode {
	var be *Error
	if !errors.As(err, &be) {
		return ""
	}
	return be.Code
}

// AsError returns the *Error inside err, if any.
func AsError(err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return nil
}
