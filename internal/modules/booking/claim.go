// README: Exclusivity claim: at most one carrier and vehicle win a pending booking.
package booking

import (
	"context"
	"errors"
	"time"

	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/types"
)

type LossReason string

const (
	LostAlreadyAccepted    LossReason = "already_accepted"
	LostVehicleUnavailable LossReason = "vehicle_unavailable"
)

type ClaimRequest struct {
	Ref       string
	CarrierID types.ID
	VehicleID types.ID
	Note      string
	At        time.Time
}

// ClaimResult is Won with the committed booking, or Lost with the reason and
// the booking as the loser last saw it. Losers never mutate anything.
type ClaimResult struct {
	Won     bool
	Reason  LossReason
	Booking *Booking
}

type ClaimManager struct {
	repo    Repository
	pricing *pricing.Service
}

func NewClaimManager(repo Repository, pricing *pricing.Service) *ClaimManager {
	return &ClaimManager{repo: repo, pricing: pricing}
}

// TryClaim moves a pending booking to accepted for the given carrier and
// vehicle. The status check-and-set and the vehicle availability flip happen
// in one commit. Claiming a cancelled or rejected booking is an invalid
// transition, not a lost race.
func (m *ClaimManager) TryClaim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	b, err := m.repo.Load(ctx, req.Ref)
	if err != nil {
		return ClaimResult{}, err
	}
	if b.Status != StatusPending {
		return m.classify(b)
	}

	v, err := m.repo.LoadVehicle(ctx, req.VehicleID)
	if err != nil {
		return ClaimResult{}, err
	}
	if v.OwnerID != req.CarrierID {
		return ClaimResult{}, unauthorized("vehicle %s is not owned by %s", v.ID, req.CarrierID)
	}
	if v.CapacityKg < b.Cargo.WeightKg {
		return ClaimResult{}, invalid("vehicle capacity %.0fkg is below cargo weight %.0fkg", v.CapacityKg, b.Cargo.WeightKg)
	}
	if !v.Available {
		return ClaimResult{Reason: LostVehicleUnavailable, Booking: b}, nil
	}

	quote, err := m.pricing.Estimate(pricing.PricingRequest{
		DistanceKm: b.Pricing.DistanceKm,
		RatePerKm:  v.RatePerKm,
		Charges:    b.Pricing.Charges,
	})
	if err != nil {
		return ClaimResult{}, invalid("%v", err)
	}

	next := b.Clone()
	next.CarrierID = req.CarrierID
	next.VehicleID = v.ID
	next.Pricing = quote
	next.Status = StatusAccepted
	next.Version = b.Version + 1
	next.UpdatedAt = req.At
	next.Timeline = append(next.Timeline, TimelineEntry{
		Status:   StatusAccepted,
		At:       req.At,
		ActorID:  req.CarrierID,
		Note:     req.Note,
		Location: clonePoint(v.Location),
	})

	err = m.repo.CompareAndSwapStatus(ctx, Commit{
		Booking:         next,
		ExpectedStatus:  StatusPending,
		ExpectedVersion: b.Version,
		ClaimVehicle:    v.ID,
	})
	switch {
	case err == nil:
		return ClaimResult{Won: true, Booking: next}, nil
	case errors.Is(err, ErrVehicleUnavailable):
		return ClaimResult{Reason: LostVehicleUnavailable, Booking: b}, nil
	case errors.Is(err, ErrStaleVersion):
		cur, lerr := m.repo.Load(ctx, req.Ref)
		if lerr != nil {
			return ClaimResult{}, lerr
		}
		if cur.Status == StatusPending {
			return ClaimResult{}, conflict(ErrStaleVersion, cur, StatusAccepted)
		}
		return m.classify(cur)
	default:
		return ClaimResult{}, err
	}
}

// classify explains why a non-pending booking cannot be claimed.
func (m *ClaimManager) classify(b *Booking) (ClaimResult, error) {
	if b.Assigned() {
		return ClaimResult{Reason: LostAlreadyAccepted, Booking: b}, nil
	}
	return ClaimResult{}, conflict(ErrInvalidTransition, b, StatusAccepted)
}
