// README: Pricing service computes trip cost from distance and the carrier's rate.
package pricing

import (
	"fmt"
	"math"

	"farmhaul/internal/types"
)

type Service struct {
	currency string
}

// NewService returns a calculator that tags rates without a currency with the
// given one (INR when empty).
func NewService(currency string) *Service {
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return &Service{currency: currency}
}

// Estimate prices a trip. The base amount is rounded once, half away from
// zero, to the currency minor unit; the total is the exact integer sum of the
// base and the additional charges.
func (s *Service) Estimate(req PricingRequest) (PricingResult, error) {
	if math.IsNaN(req.DistanceKm) || math.IsInf(req.DistanceKm, 0) || req.DistanceKm < 0 {
		return PricingResult{}, fmt.Errorf("%w: %v", ErrInvalidDistance, req.DistanceKm)
	}
	if req.RatePerKm.Amount < 0 {
		return PricingResult{}, fmt.Errorf("%w: %d", ErrInvalidRate, req.RatePerKm.Amount)
	}
	if err := req.Charges.Validate(); err != nil {
		return PricingResult{}, err
	}

	currency := req.RatePerKm.Currency
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return PricingResult{}, fmt.Errorf("%w: rate in %s, pricing in %s", ErrCurrencyMismatch, currency, s.currency)
	}
	fare := math.Round(req.DistanceKm * float64(req.RatePerKm.Amount))
	if fare > float64(MaxBaseAmount) {
		return PricingResult{}, fmt.Errorf("%w: base %.0f", ErrAmountTooLarge, fare)
	}
	base := types.NewMoney(int64(fare), currency)
	return s.build(req.DistanceKm, base, req.Charges), nil
}

// Reprice replaces the additional charges on an existing result, keeping the
// distance and base amount.
func (s *Service) Reprice(prev PricingResult, charges Charges) (PricingResult, error) {
	if err := charges.Validate(); err != nil {
		return PricingResult{}, err
	}
	if prev.BaseAmount.Amount < 0 || prev.BaseAmount.Amount > MaxBaseAmount {
		return PricingResult{}, fmt.Errorf("%w: base %d", ErrAmountTooLarge, prev.BaseAmount.Amount)
	}
	return s.build(prev.DistanceKm, prev.BaseAmount, charges), nil
}

func (s *Service) build(distanceKm float64, base types.Money, charges Charges) PricingResult {
	return PricingResult{
		DistanceKm:  distanceKm,
		BaseAmount:  base,
		Charges:     charges,
		TotalAmount: types.NewMoney(base.Amount+charges.Sum(), base.Currency),
		Breakdown: map[string]int64{
			"base":      base.Amount,
			"loading":   charges.Loading,
			"unloading": charges.Unloading,
			"waiting":   charges.Waiting,
			"toll":      charges.Toll,
		},
	}
}
