package payment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order has already been paid")
	ErrOrderNotPayable  = errors.New("order is no longer awaiting payment")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrAmountMismatch   = errors.New("charged amount does not match payment")
	ErrNotReconcilable  = errors.New("payment can no longer be settled")
)

// DuplicateChargeReason marks a payment charged after its order was settled
// by another payment. Such payments need a manual refund.
const DuplicateChargeReason = "duplicate charge: order already paid, refund required"

type AmountRangeError struct {
	Amount, Min, Max string
}

func (e *AmountRangeError) Error() string {
	return fmt.Sprintf("amount %s is outside the allowed range %s to %s", e.Amount, e.Min, e.Max)
}

// GatewayError carries a failed call to the payment provider.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paystack %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
