package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

// BatchAdjustError reports every product that made a batch adjustment
// unapplicable. A batch either applies fully or fails with one of these.
type BatchAdjustError struct {
	Missing      []string
	Insufficient []string
}

func (e *BatchAdjustError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("products not found: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Insufficient) > 0 {
		parts = append(parts, fmt.Sprintf("insufficient stock for products: %s", strings.Join(e.Insufficient, ", ")))
	}
	if len(parts) == 0 {
		return "batch adjustment failed"
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the matching sentinels so errors.Is works on the boundary.
func (e *BatchAdjustError) Unwrap() []error {
	var errs []error
	if len(e.Missing) > 0 {
		errs = append(errs, ErrNotFound)
	}
	if len(e.Insufficient) > 0 {
		errs = append(errs, ErrInsufficientStock)
	}
	return errs
}
