package shared

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input rejected before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError indicates a missing document, product, location or balance key.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InsufficientStockError reports a decrease that would drive a balance negative.
// Lot is the normalized lot number, empty when stock carries no lot identity.
type InsufficientStockError struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Lot        string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	if e.Lot != "" {
		return fmt.Sprintf("insufficient stock for product %s lot %q at location %s: requested %s, available %s",
			e.ProductID, e.Lot, e.LocationID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %s at location %s: requested %s, available %s",
		e.ProductID, e.LocationID, e.Requested, e.Available)
}

// InvalidTransitionError reports a workflow action attempted from a state that
// does not permit it.
type InvalidTransitionError struct {
	Kind   string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot %s while %s", e.Kind, e.Action, e.From)
}

// ConflictError indicates a concurrent mutation invalidated the operation; the
// caller should re-fetch and retry the whole transition.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}
