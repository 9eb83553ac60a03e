package measurement

import (
	"time"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitCM   Unit = "cm"
	UnitInch Unit = "in"
)

// Measurement is one named set of body measurements. Every value is optional.
type Measurement struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Label     string           `json:"label"`
	Unit      Unit             `json:"unit"`
	Chest     *decimal.Decimal `json:"chest,omitempty"`
	Waist     *decimal.Decimal `json:"waist,omitempty"`
	Hips      *decimal.Decimal `json:"hips,omitempty"`
	Shoulder  *decimal.Decimal `json:"shoulder,omitempty"`
	Sleeve    *decimal.Decimal `json:"sleeve,omitempty"`
	Length    *decimal.Decimal `json:"length,omitempty"`
	Inseam    *decimal.Decimal `json:"inseam,omitempty"`
	Neck      *decimal.Decimal `json:"neck,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Values is the body part set shared by create and update.
type Values struct {
	Chest    *decimal.Decimal `json:"chest"`
	Waist    *decimal.Decimal `json:"waist"`
	Hips     *decimal.Decimal `json:"hips"`
	Shoulder *decimal.Decimal `json:"shoulder"`
	Sleeve   *decimal.Decimal `json:"sleeve"`
	Length   *decimal.Decimal `json:"length"`
	Inseam   *decimal.Decimal `json:"inseam"`
	Neck     *decimal.Decimal `json:"neck"`
}

func (v Values) named() map[string]*decimal.Decimal {
	return map[string]*decimal.Decimal{
		"chest":    v.Chest,
		"waist":    v.Waist,
		"hips":     v.Hips,
		"shoulder": v.Shoulder,
		"sleeve":   v.Sleeve,
		"length":   v.Length,
		"inseam":   v.Inseam,
		"neck":     v.Neck,
	}
}

// Invalid returns a message per non-positive value, or nil.
func (v Values) Invalid() map[string]string {
	var fields map[string]string
	for name, val := range v.named() {
		if val != nil && !val.IsPositive() {
			if fields == nil {
				fields = map[string]string{}
			}
			fields[name] = name + " must be greater than 0"
		}
	}
	return fields
}

type UpdateParams struct {
	Label *string
	Unit  *Unit
	Notes *string
	Values
}
