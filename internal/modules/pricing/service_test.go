package pricing

import (
	"errors"
	"math"
	"testing"

	"farmhaul/internal/modules/geo"
	"farmhaul/internal/types"
)

func TestService_Estimate(t *testing.T) {
	rate := types.NewMoney(1500, "INR") // 15.00 per km

	tests := []struct {
		name      string
		req       PricingRequest
		wantBase  int64
		wantTotal int64
	}{
		{
			name:      "zero distance",
			req:       PricingRequest{DistanceKm: 0, RatePerKm: rate},
			wantBase:  0,
			wantTotal: 0,
		},
		{
			name:      "whole kilometres",
			req:       PricingRequest{DistanceKm: 10, RatePerKm: rate},
			wantBase:  15000,
			wantTotal: 15000,
		},
		{
			// 2.5 * 101 = 252.5 -> 253
			name:      "rounds half away from zero once",
			req:       PricingRequest{DistanceKm: 2.5, RatePerKm: types.NewMoney(101, "INR")},
			wantBase:  253,
			wantTotal: 253,
		},
		{
			name: "charges are added exactly",
			req: PricingRequest{
				DistanceKm: 10,
				RatePerKm:  rate,
				Charges:    Charges{Loading: 20000, Unloading: 15000, Waiting: 5050, Toll: 12075},
			},
			wantBase:  15000,
			wantTotal: 15000 + 20000 + 15000 + 5050 + 12075,
		},
	}

	s := NewService("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Estimate(tt.req)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if got.BaseAmount.Amount != tt.wantBase {
				t.Errorf("base = %d, want %d", got.BaseAmount.Amount, tt.wantBase)
			}
			if got.TotalAmount.Amount != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.TotalAmount.Amount, tt.wantTotal)
			}
			if got.TotalAmount.Amount != got.BaseAmount.Amount+got.Charges.Sum() {
				t.Errorf("total %d != base %d + charges %d", got.TotalAmount.Amount, got.BaseAmount.Amount, got.Charges.Sum())
			}
		})
	}
}

func TestService_Estimate_LucknowToDelhi(t *testing.T) {
	pickup := types.Point{Lat: 26.8467, Lng: 80.9462}
	dropoff := types.Point{Lat: 28.6139, Lng: 77.2090}

	d, err := geo.Distance(pickup, dropoff)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if math.Abs(d-416.99) > 0.05 {
		t.Fatalf("distance = %f, want ~416.99", d)
	}

	got, err := NewService("INR").Estimate(PricingRequest{DistanceKm: d, RatePerKm: types.FromMajor(15, "INR")})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if want := int64(math.Round(d * 1500)); got.BaseAmount.Amount != want {
		t.Errorf("base = %d, want %d", got.BaseAmount.Amount, want)
	}
	if got.BaseAmount.Amount < 625400 || got.BaseAmount.Amount > 625600 {
		t.Errorf("base = %s, want about 6254.88 INR", got.BaseAmount)
	}
	if got.TotalAmount != got.BaseAmount {
		t.Errorf("total %v != base %v with zero charges", got.TotalAmount, got.BaseAmount)
	}
	if got.TotalAmount.Currency != "INR" {
		t.Errorf("currency = %q", got.TotalAmount.Currency)
	}
}

func TestService_Estimate_Invalid(t *testing.T) {
	s := NewService("INR")
	rate := types.NewMoney(1500, "INR")

	tests := []struct {
		name    string
		req     PricingRequest
		wantErr error
	}{
		{"negative distance", PricingRequest{DistanceKm: -1, RatePerKm: rate}, ErrInvalidDistance},
		{"NaN distance", PricingRequest{DistanceKm: math.NaN(), RatePerKm: rate}, ErrInvalidDistance},
		{"negative rate", PricingRequest{DistanceKm: 1, RatePerKm: types.NewMoney(-1, "INR")}, ErrInvalidRate},
		{"negative toll", PricingRequest{DistanceKm: 1, RatePerKm: rate, Charges: Charges{Toll: -5}}, ErrNegativeCharge},
		{"charge sum would overflow", PricingRequest{DistanceKm: 1, RatePerKm: rate, Charges: Charges{Loading: math.MaxInt64, Toll: 1}}, ErrAmountTooLarge},
		{"charge above cap", PricingRequest{DistanceKm: 1, RatePerKm: rate, Charges: Charges{Waiting: MaxCharge + 1}}, ErrAmountTooLarge},
		{"fare above cap", PricingRequest{DistanceKm: 1e9, RatePerKm: types.NewMoney(math.MaxInt64/2, "INR")}, ErrAmountTooLarge},
		{"rate in another currency", PricingRequest{DistanceKm: 1, RatePerKm: types.NewMoney(200, "USD")}, ErrCurrencyMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Estimate(tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Reprice(t *testing.T) {
	s := NewService("INR")
	first, err := s.Estimate(PricingRequest{DistanceKm: 100, RatePerKm: types.NewMoney(1200, "INR")})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	got, err := s.Reprice(first, Charges{Loading: 50000, Toll: 25000})
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if got.BaseAmount != first.BaseAmount {
		t.Errorf("base changed: %v -> %v", first.BaseAmount, got.BaseAmount)
	}
	if got.TotalAmount.Amount != 120000+75000 {
		t.Errorf("total = %d, want %d", got.TotalAmount.Amount, 195000)
	}
	if got.Breakdown["toll"] != 25000 {
		t.Errorf("breakdown toll = %d", got.Breakdown["toll"])
	}

	if _, err := s.Reprice(first, Charges{Waiting: -1}); !errors.Is(err, ErrNegativeCharge) {
		t.Errorf("negative charge err = %v", err)
	}
	if _, err := s.Reprice(first, Charges{Loading: math.MaxInt64, Toll: 1}); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("overflowing charges err = %v", err)
	}
}

func TestService_MaximumChargesStayPositive(t *testing.T) {
	s := NewService("INR")
	ceiling := Charges{Loading: MaxCharge, Unloading: MaxCharge, Waiting: MaxCharge, Toll: MaxCharge}
	got, err := s.Reprice(PricingResult{BaseAmount: types.NewMoney(MaxBaseAmount, "INR")}, ceiling)
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if got.TotalAmount.Amount != MaxBaseAmount+4*MaxCharge {
		t.Errorf("total = %d, want %d", got.TotalAmount.Amount, MaxBaseAmount+4*MaxCharge)
	}
}
