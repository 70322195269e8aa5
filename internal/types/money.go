// README: Common money value object used across modules.
package types

import (
	"fmt"
	"math"
)

// Money amounts are kept in currency minor units (paise for INR) so that
// sums of charges stay exact.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

const DefaultCurrency = "INR"

func NewMoney(amount int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// FromMajor converts a major-unit value (e.g. 15.5 rupees) to Money, rounding
// half away from zero to the nearest minor unit.
func FromMajor(v float64, currency string) Money {
	return NewMoney(int64(math.Round(v*100)), currency)
}

func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Major(), m.Currency)
}
