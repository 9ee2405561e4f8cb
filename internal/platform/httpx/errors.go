// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrBadRequest = errors.New("malformed request")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrorer is implemented by errors that carry per-field details.
type FieldErrorer interface {
	FieldErrors() []FieldError
}

// Detailer is implemented by errors that expose a client-safe detail string.
type Detailer interface {
	SafeMessage() string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := statusFor(err)
	problem := ProblemDetail{Title: title, Status: status}
	if status < http.StatusInternalServerError {
		problem.Detail = safeDetail(err)
	}
	var fe FieldErrorer
	if errors.As(err, &fe) {
		problem.Errors = fe.FieldErrors()
	}
	JSON(w, status, problem)
}

// StatusFor exposes the status code RespondError would use.
func StatusFor(err error) int {
	status, _ := statusFor(err)
	return status
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, "Validation Failed"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func safeDetail(err error) string {
	var d Detailer
	if errors.As(err, &d) {
		return d.SafeMessage()
	}
	return err.Error()
}

type classified struct {
	err  error
	kind error
}

func (c classified) Error() string   { return c.err.Error() }
func (c classified) Unwrap() []error { return []error{c.err, c.kind} }

// Classify tags err with one of the sentinel kinds above while keeping its message
// and its own chain intact for errors.Is/As.
func Classify(err, kind error) error {
	if err == nil {
		return nil
	}
	return classified{err: err, kind: kind}
}
