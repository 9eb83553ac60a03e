// Package notify carries outbound user notifications over a durable queue.
// Producers never block a request on delivery: publish failures are logged
// and returned so callers may ignore them.
package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindVerificationEmail  Kind = "verification_email"
	KindPasswordResetEmail Kind = "password_reset_email"
	KindPaymentReceipt     Kind = "payment_receipt"
)

type Message struct {
	Kind      Kind              `json:"kind"`
	To        string            `json:"to"`
	Name      string            `json:"name,omitempty"`
	Link      string            `json:"link,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
