// README: Radius search over vehicles and open requests.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"farmhaul/internal/metrics"
	"farmhaul/internal/modules/geo"
	"farmhaul/internal/types"
)

type NearbyQuery struct {
	Kind     geo.Kind
	Center   types.Point
	RadiusKm float64
	Limit    int
}

// VehicleFilter narrows a nearby vehicle search. Zero values match all.
type VehicleFilter struct {
	Type          VehicleType
	MinCapacityKg float64
}

func (f VehicleFilter) matches(v *Vehicle) bool {
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	return v.CapacityKg >= f.MinCapacityKg
}

// NearbyVehicle is an available vehicle with its distance from the query point.
type NearbyVehicle struct {
	Vehicle    *Vehicle `json:"vehicle"`
	DistanceKm float64  `json:"distance_km"`
}

// NearbyBooking is an open request with its distance from the query point.
type NearbyBooking struct {
	Booking    *Booking `json:"booking"`
	DistanceKm float64  `json:"distance_km"`
}

// maxNearbyScan bounds how many index entries a filtered search inspects.
const maxNearbyScan = 1000

func (s *Service) normalizeNearby(q NearbyQuery) (NearbyQuery, error) {
	if q.RadiusKm == 0 {
		q.RadiusKm = s.opts.DefaultRadiusKm
	}
	if q.RadiusKm > s.opts.MaxRadiusKm {
		return q, invalid("radius %.1fkm exceeds the %.1fkm maximum", q.RadiusKm, s.opts.MaxRadiusKm)
	}
	if q.Limit == 0 || q.Limit > s.opts.MaxResults {
		q.Limit = s.opts.MaxResults
	}
	return q, nil
}

func (s *Service) searchIndex(ctx context.Context, q NearbyQuery) ([]geo.Match, error) {
	start := time.Now()
	matches, err := s.index.Nearby(ctx, q.Kind, q.Center, q.RadiusKm, q.Limit)
	if err != nil {
		if isGeoInputError(err) {
			return nil, invalid("%v", err)
		}
		return nil, err
	}
	metrics.ObserveNearby(string(q.Kind), time.Since(start).Seconds())
	return matches, nil
}

// FindNearby returns entities within the radius, closest first. A zero radius
// or limit uses the configured default; both are capped.
func (s *Service) FindNearby(ctx context.Context, q NearbyQuery) ([]geo.Match, error) {
	q, err := s.normalizeNearby(q)
	if err != nil {
		return nil, err
	}
	return s.searchIndex(ctx, q)
}

// nearbyFiltered walks index matches closest first, widening the window until
// keep has accepted q.Limit of them or the radius holds no more.
func (s *Service) nearbyFiltered(ctx context.Context, q NearbyQuery, keep func(geo.Match) (bool, error)) error {
	q, err := s.normalizeNearby(q)
	if err != nil {
		return err
	}
	want := q.Limit
	seen := make(map[types.ID]bool)
	kept := 0
	for fetch := want * 2; ; fetch *= 2 {
		if fetch > maxNearbyScan {
			fetch = maxNearbyScan
		}
		matches, err := s.searchIndex(ctx, NearbyQuery{Kind: q.Kind, Center: q.Center, RadiusKm: q.RadiusKm, Limit: fetch})
		if err != nil {
			return err
		}
		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ok, err := keep(m)
			if err != nil {
				return err
			}
			if ok {
				kept++
				if kept == want {
					return nil
				}
			}
		}
		if len(matches) < fetch || fetch == maxNearbyScan {
			return nil
		}
	}
}

// NearbyVehicles lists available vehicles near center that pass the filter.
func (s *Service) NearbyVehicles(ctx context.Context, center types.Point, radiusKm float64, limit int, filter VehicleFilter) ([]NearbyVehicle, error) {
	if filter.MinCapacityKg < 0 {
		return nil, invalid("min capacity must not be negative")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown vehicle type %q", filter.Type)
	}
	out := []NearbyVehicle{}
	q := NearbyQuery{Kind: geo.KindVehicle, Center: center, RadiusKm: radiusKm, Limit: limit}
	err := s.nearbyFiltered(ctx, q, func(m geo.Match) (bool, error) {
		v, err := s.repo.LoadVehicle(ctx, m.ID)
		if errors.Is(err, ErrNotFound) {
			s.indexRemove(ctx, geo.KindVehicle, m.ID)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !v.Available {
			s.indexRemove(ctx, geo.KindVehicle, m.ID)
			return false, nil
		}
		if !filter.matches(v) {
			return false, nil
		}
		out = append(out, NearbyVehicle{Vehicle: v, DistanceKm: geo.RoundKm(m.DistanceKm)})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NearbyRequests lists pending bookings whose pickup is near the carrier.
func (s *Service) NearbyRequests(ctx context.Context, carrier types.Actor, center types.Point, radiusKm float64, limit int) ([]NearbyBooking, error) {
	if carrier.Role != types.RoleCarrier && carrier.Role != types.RoleAdmin {
		return nil, unauthorized("only carriers may browse open requests")
	}
	out := []NearbyBooking{}
	q := NearbyQuery{Kind: geo.KindRequest, Center: center, RadiusKm: radiusKm, Limit: limit}
	err := s.nearbyFiltered(ctx, q, func(m geo.Match) (bool, error) {
		b, err := s.repo.Load(ctx, string(m.ID))
		if errors.Is(err, ErrNotFound) {
			s.indexRemove(ctx, geo.KindRequest, m.ID)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if b.Status != StatusPending {
			s.indexRemove(ctx, geo.KindRequest, m.ID)
			return false, nil
		}
		out = append(out, NearbyBooking{Booking: b, DistanceKm: geo.RoundKm(m.DistanceKm)})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RebuildIndex loads every available located vehicle and every pending
// request from the repository into the geo index. Call it before serving when
// the index does not outlive the process.
func (s *Service) RebuildIndex(ctx context.Context) (vehicles, requests int, err error) {
	if s.index == nil {
		return 0, 0, nil
	}
	vs, err := s.repo.ListAvailableVehicles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list vehicles: %w", err)
	}
	for _, v := range vs {
		if err := s.index.Upsert(ctx, geo.KindVehicle, v.ID, *v.Location); err != nil {
			return vehicles, requests, fmt.Errorf("index vehicle %s: %w", v.ID, err)
		}
		vehicles++
	}
	bs, err := s.repo.ListPending(ctx)
	if err != nil {
		return vehicles, 0, fmt.Errorf("list pending: %w", err)
	}
	for _, b := range bs {
		if b.Pickup.Point == nil {
			continue
		}
		if err := s.index.Upsert(ctx, geo.KindRequest, types.ID(b.Ref), b.PickupPoint()); err != nil {
			return vehicles, requests, fmt.Errorf("index request %s: %w", b.Ref, err)
		}
		requests++
	}
	return vehicles, requests, nil
}

func isGeoInputError(err error) bool {
	return errors.Is(err, geo.ErrInvalidCoordinate) ||
		errors.Is(err, geo.ErrInvalidRadius) ||
		errors.Is(err, geo.ErrInvalidKind) ||
		errors.Is(err, geo.ErrInvalidLimit)
}

// Index writes are best effort: the repository is the source of truth and
// NearbyRequests drops stale entries it meets.
func (s *Service) indexUpsert(ctx context.Context, kind geo.Kind, id types.ID, p types.Point) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, kind, id, p); err != nil {
		log.Printf("booking: index %s %s: %v", kind, id, err)
	}
}

func (s *Service) indexRemove(ctx context.Context, kind geo.Kind, id types.ID) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, kind, id); err != nil {
		log.Printf("booking: unindex %s %s: %v", kind, id, err)
	}
}
