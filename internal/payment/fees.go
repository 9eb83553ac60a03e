package payment

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	koboPerNaira = decimal.NewFromInt(100)
	feeRate      = decimal.RequireFromString("0.015")
)

const (
	flatFeeKobo      int64 = 100_00
	flatFeeThreshold int64 = 2_500_00
	feeCapKobo       int64 = 2_000_00
)

// ToKobo converts a Naira amount to kobo. Sub-kobo precision is rejected.
func ToKobo(naira decimal.Decimal) (int64, error) {
	kobo := naira.Mul(koboPerNaira)
	if !kobo.Equal(kobo.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", naira)
	}
	if !kobo.IsPositive() {
		return 0, fmt.Errorf("amount %s must be positive", naira)
	}
	return kobo.IntPart(), nil
}

func FromKobo(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

// EstimateFee applies the local card schedule: 1.5% plus ₦100, the flat part
// waived below ₦2,500, the total capped at ₦2,000.
func EstimateFee(kobo int64) int64 {
	fee := decimal.NewFromInt(kobo).Mul(feeRate).Round(0).IntPart()
	if kobo >= flatFeeThreshold {
		fee += flatFeeKobo
	}
	if fee > feeCapKobo {
		fee = feeCapKobo
	}
	return fee
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
