package pos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var (
	// ErrInsufficientStock is matched by every InsufficientStockError.
	ErrInsufficientStock = errors.New("pos: insufficient stock")
	// ErrDuplicateReference indicates a sale with the same reference already committed.
	ErrDuplicateReference = fmt.Errorf("pos: transaction reference already used: %w", httpx.ErrConflict)
	// ErrSaleNotFound indicates an unknown sale id or reference.
	ErrSaleNotFound = fmt.Errorf("pos: sale not found: %w", httpx.ErrNotFound)
)

// ValidationError lists every rejected field of a checkout request.
type ValidationError struct {
	Fields []httpx.FieldError
}

func (e *ValidationError) Error() string {
	return "pos: " + e.SafeMessage()
}

// SafeMessage implements httpx.Detailer.
func (e *ValidationError) SafeMessage() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid checkout: " + strings.Join(parts, "; ")
}

// FieldErrors implements httpx.FieldErrorer.
func (e *ValidationError) FieldErrors() []httpx.FieldError { return e.Fields }

// Unwrap ties the error to httpx.ErrValidation.
func (e *ValidationError) Unwrap() error { return httpx.ErrValidation }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, httpx.FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InsufficientStockError reports the first product the cart asks too much of.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return "pos: " + e.SafeMessage()
}

// SafeMessage implements httpx.Detailer.
func (e *InsufficientStockError) SafeMessage() string {
	return shared.Sprintf("insufficient stock for %s: available %d, requested %d", e.Name, e.Available, e.Requested)
}

// Unwrap matches ErrInsufficientStock and the conflict status.
func (e *InsufficientStockError) Unwrap() []error {
	return []error{ErrInsufficientStock, httpx.ErrConflict}
}
