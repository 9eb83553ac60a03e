package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("order not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrMeasurementNotFound = errors.New("measurement not found")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidDeliveryDate = errors.New("deliveryDate must be a valid date")
	ErrDeliveryDateInPast  = errors.New("deliveryDate must be in the future")
	ErrNotEditable         = errors.New("order can only be changed while pending and unpaid")
	ErrAlreadyPaid         = errors.New("order has already been paid")
	ErrPaymentRequired     = errors.New("order must be paid before work starts")
	ErrNothingToUpdate     = errors.New("no fields to update")
	ErrStatusChanged       = errors.New("order status changed concurrently")
)

// OptionError reports a fabric or color that is missing or not available.
type OptionError struct {
	Kind   string
	Name   string
	Exists bool
}

func (e *OptionError) Error() string {
	if !e.Exists {
		return fmt.Sprintf("%s %q is not offered for this product", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q is currently unavailable", e.Kind, e.Name)
}

// TransitionError is an order status change the lifecycle does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
