package order

import (
	"strings"
	"time"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled, StatusFailed},
	StatusInProgress: {StatusReady, StatusCancelled},
	StatusReady:      {StatusDelivered, StatusCancelled},
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{
		StatusPending, StatusInProgress, StatusReady,
		StatusDelivered, StatusCancelled, StatusFailed,
	} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	for _, st := range []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition validates moving o to the given status.
// Work only starts on a paid order.
func checkTransition(o *Order, to Status) error {
	if !CanTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}
	if to == StatusInProgress && !o.IsPaid() {
		return ErrPaymentRequired
	}
	return nil
}

// ParseDeliveryDate accepts RFC 3339 timestamps or YYYY-MM-DD dates (UTC midnight).
// The result must be strictly after now.
func ParseDeliveryDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, ErrInvalidDeliveryDate
		}
	}
	if !t.After(now) {
		return time.Time{}, ErrDeliveryDateInPast
	}
	return t.UTC(), nil
}
