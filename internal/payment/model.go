package payment

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
	StatusCancelled Status = "cancelled"
	StatusReversed  Status = "reversed"
)

// Terminal reports whether verification should stop consulting the gateway.
func (s Status) Terminal() bool {
	return s != StatusPending
}

const (
	ProviderPaystack = "paystack"
	CurrencyNGN      = "NGN"
)

// Payment amounts are integer kobo.
type Payment struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"userId"`
	OrderID          int64      `json:"orderId"`
	Email            string     `json:"-"`
	Reference        string     `json:"reference"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           Status     `json:"status"`
	FeeEstimate      int64      `json:"feeEstimate"`
	GatewayFees      *int64     `json:"gatewayFees,omitempty"`
	GatewayReference *string    `json:"gatewayReference,omitempty"`
	AccessCode       *string    `json:"accessCode,omitempty"`
	AuthorizationURL *string    `json:"authorizationUrl,omitempty"`
	Channel          *string    `json:"channel,omitempty"`
	FailureReason    *string    `json:"failureReason,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type InitializeInput struct {
	OrderID     int64
	CallbackURL string
}

type InitializeResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Amount           int64  `json:"amount"`
	FeeEstimate      int64  `json:"feeEstimate"`
}

// Settlement is what a successful charge reports back.
type Settlement struct {
	GatewayReference string
	Amount           int64
	Fees             int64
	Channel          string
	PaidAt           time.Time
}

// Transaction is the gateway's view of a charge.
type Transaction struct {
	ID              int64      `json:"id"`
	Status          string     `json:"status"`
	Reference       string     `json:"reference"`
	Amount          int64      `json:"amount"`
	Fees            int64      `json:"fees"`
	Channel         string     `json:"channel"`
	Currency        string     `json:"currency"`
	GatewayResponse string     `json:"gateway_response"`
	PaidAt          *time.Time `json:"paid_at"`
}

func (t *Transaction) settlement() Settlement {
	s := Settlement{
		GatewayReference: formatID(t.ID),
		Amount:           t.Amount,
		Fees:             t.Fees,
		Channel:          t.Channel,
		PaidAt:           time.Now().UTC(),
	}
	if t.PaidAt != nil {
		s.PaidAt = t.PaidAt.UTC()
	}
	return s
}

const (
	EventChargeSuccess   = "charge.success"
	EventChargeFailed    = "charge.failed"
	EventRefundProcessed = "refund.processed"
)

// Event is a webhook delivery body.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type refundData struct {
	Reference            string `json:"reference"`
	TransactionReference string `json:"transaction_reference"`
	Transaction          *struct {
		Reference string `json:"reference"`
	} `json:"transaction"`
}

func (r refundData) paymentReference() string {
	switch {
	case r.TransactionReference != "":
		return r.TransactionReference
	case r.Transaction != nil && r.Transaction.Reference != "":
		return r.Transaction.Reference
	}
	return r.Reference
}

// Delivery is a raw webhook request as received.
type Delivery struct {
	Body           []byte
	SignatureValid bool
}

type WebhookRecord struct {
	Provider  string
	Event     string
	Reference string
	Payload   json.RawMessage
}
