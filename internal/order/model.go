package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusReady      Status = "Ready"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
	StatusFailed     Status = "Failed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

// Order snapshots the fabric and color pricing in force when it was placed.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	ProductID       int64           `json:"productId"`
	Quantity        int             `json:"quantity"`
	FabricName      string          `json:"selectedFabric"`
	FabricPrice     decimal.Decimal `json:"fabricPrice"`
	ColorName       *string         `json:"selectedColor,omitempty"`
	ColorExtraPrice decimal.Decimal `json:"colorExtraPrice"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	DeliveryDate    time.Time       `json:"deliveryDate"`
	DeliveryAddress string          `json:"deliveryAddress"`
	MeasurementID   *int64          `json:"measurementId,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// Editable reports whether the customer may still change the order.
func (o *Order) Editable() bool {
	return o.Status == StatusPending && !o.IsPaid()
}

type Breakdown struct {
	BasePrice       decimal.Decimal `json:"basePrice"`
	FabricPrice     decimal.Decimal `json:"fabricPrice"`
	ColorExtraPrice decimal.Decimal `json:"colorExtraPrice"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	TotalCost       decimal.Decimal `json:"totalCost"`
}

type CreateInput struct {
	ProductID       int64
	Quantity        int
	Fabric          string
	Color           *string
	DeliveryDate    string
	DeliveryAddress string
	MeasurementID   *int64
	Notes           *string
}

type UpdateInput struct {
	Quantity        *int
	Fabric          *string
	Color           *string
	DeliveryDate    *string
	DeliveryAddress *string
	MeasurementID   *int64
	Notes           *string
}

func (in UpdateInput) reprices() bool {
	return in.Quantity != nil || in.Fabric != nil || in.Color != nil
}

func (in UpdateInput) empty() bool {
	return !in.reprices() && in.DeliveryDate == nil && in.DeliveryAddress == nil &&
		in.MeasurementID == nil && in.Notes == nil
}

type ListFilter struct {
	UserID        *int64
	Status        *Status
	PaymentStatus *PaymentStatus
	Limit         int
	Page          int
}

type ListResult struct {
	Items      []*Order `json:"items"`
	TotalCount int64    `json:"totalCount"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
}
