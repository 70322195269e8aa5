// README: Trip cost inputs and the resulting breakdown.
package pricing

import (
	"errors"
	"fmt"

	"farmhaul/internal/types"
)

var (
	ErrNegativeCharge   = errors.New("additional charge must not be negative")
	ErrAmountTooLarge   = errors.New("amount exceeds the supported maximum")
	ErrInvalidDistance  = errors.New("distance must be a finite non-negative number")
	ErrInvalidRate      = errors.New("rate per km must not be negative")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// MaxCharge caps each additional charge and MaxBaseAmount the distance fare,
// both in minor units, so a total can never overflow int64.
const (
	MaxCharge     int64 = 100_000_000_00
	MaxBaseAmount int64 = 1_000_000_000_000_00
)

// Charges are the additional per-trip amounts in currency minor units.
type Charges struct {
	Loading   int64 `json:"loading"`
	Unloading int64 `json:"unloading"`
	Waiting   int64 `json:"waiting"`
	Toll      int64 `json:"toll"`
}

func (c Charges) Sum() int64 {
	return c.Loading + c.Unloading + c.Waiting + c.Toll
}

func (c Charges) Validate() error {
	for name, v := range map[string]int64{
		"loading":   c.Loading,
		"unloading": c.Unloading,
		"waiting":   c.Waiting,
		"toll":      c.Toll,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeCharge, name, v)
		}
		if v > MaxCharge {
			return fmt.Errorf("%w: %s=%d", ErrAmountTooLarge, name, v)
		}
	}
	return nil
}

type PricingRequest struct {
	DistanceKm float64
	RatePerKm  types.Money
	Charges    Charges
}

type PricingResult struct {
	DistanceKm  float64          `json:"distance_km"`
	BaseAmount  types.Money      `json:"base_amount"`
	Charges     Charges          `json:"charges"`
	TotalAmount types.Money      `json:"total_amount"`
	Breakdown   map[string]int64 `json:"breakdown"`
}
