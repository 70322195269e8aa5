// README: Minimal carrier resource registration and position updates.
package booking

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"farmhaul/internal/modules/geo"
	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/types"
)

type RegisterVehicleCommand struct {
	Carrier    types.Actor
	ID         types.ID
	Type       VehicleType `validate:"required,oneof=truck mini_truck pickup tractor tempo van"`
	Number     string      `validate:"max=32"`
	CapacityKg float64     `validate:"gt=0"`
	RatePerKm  types.Money
	Location   *types.Point
}

type UpdateLocationCommand struct {
	Carrier   types.Actor
	VehicleID types.ID `validate:"required"`
	Point     types.Point
}

// RegisterVehicle adds an available vehicle for the calling carrier and makes
// it discoverable if it has a position.
func (s *Service) RegisterVehicle(ctx context.Context, cmd RegisterVehicleCommand) (*Vehicle, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if cmd.Carrier.Role != types.RoleCarrier || cmd.Carrier.ID == "" {
		return nil, unauthorized("only carriers may register vehicles")
	}
	if cmd.RatePerKm.Amount < 0 {
		return nil, invalid("rate per km must not be negative")
	}
	if cmd.Location != nil {
		if err := geo.ValidatePoint(*cmd.Location); err != nil {
			return nil, invalid("%v", err)
		}
	}

	id := cmd.ID
	if id == "" {
		id = types.ID("VEH-" + strings.ToUpper(uuid.NewString()))
	}
	rate := cmd.RatePerKm
	if rate.Currency == "" {
		rate.Currency = s.opts.Currency
	}
	if rate.Currency != s.opts.Currency {
		return nil, fmt.Errorf("%w: %w: rate in %s, engine prices in %s", ErrValidation, pricing.ErrCurrencyMismatch, rate.Currency, s.opts.Currency)
	}
	v := &Vehicle{
		ID:         id,
		OwnerID:    cmd.Carrier.ID,
		Type:       cmd.Type,
		Number:     strings.ToUpper(strings.TrimSpace(cmd.Number)),
		CapacityKg: cmd.CapacityKg,
		RatePerKm:  rate,
		Available:  true,
		Location:   clonePoint(cmd.Location),
		UpdatedAt:  s.now(),
	}

	if err := s.repo.EnsureIdentity(ctx, cmd.Carrier.ID, types.RoleCarrier, s.opts.Currency); err != nil {
		return nil, err
	}
	if err := s.repo.InsertVehicle(ctx, v); err != nil {
		return nil, err
	}
	if v.Location != nil {
		s.indexUpsert(ctx, geo.KindVehicle, v.ID, *v.Location)
	}
	return v.Clone(), nil
}

// UpdateVehicleLocation is owner-only. Busy vehicles keep their stored
// position but stay out of the index until released.
func (s *Service) UpdateVehicleLocation(ctx context.Context, cmd UpdateLocationCommand) (*Vehicle, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if err := geo.ValidatePoint(cmd.Point); err != nil {
		return nil, invalid("%v", err)
	}
	v, err := s.repo.LoadVehicle(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != cmd.Carrier.ID {
		return nil, unauthorized("vehicle %s is not owned by %s", v.ID, cmd.Carrier.ID)
	}

	now := s.now()
	if err := s.repo.SetVehicleLocation(ctx, v.ID, cmd.Point, now); err != nil {
		return nil, err
	}
	v.Location = &cmd.Point
	v.UpdatedAt = now
	if v.Available {
		s.indexUpsert(ctx, geo.KindVehicle, v.ID, cmd.Point)
	}
	return v, nil
}

// reindexVehicle puts a released vehicle back into the index at its last
// known position.
func (s *Service) reindexVehicle(ctx context.Context, id types.ID) {
	v, err := s.repo.LoadVehicle(ctx, id)
	if err != nil {
		log.Printf("booking: reload vehicle %s: %v", id, err)
		return
	}
	if v.Available && v.Location != nil {
		s.indexUpsert(ctx, geo.KindVehicle, v.ID, *v.Location)
	}
}
