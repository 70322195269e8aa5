// README: Location kinds and query results for the geo index.
package geo

import (
	"context"
	"math"

	"farmhaul/internal/types"
)

type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindRequest Kind = "request"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVehicle, KindRequest:
		return Kind(s), nil
	}
	return "", ErrInvalidKind
}

// Match is one entity returned by a radius query.
type Match struct {
	ID         types.ID    `json:"id"`
	Kind       Kind        `json:"kind"`
	Position   types.Point `json:"position"`
	DistanceKm float64     `json:"distance_km"`
}

// Index stores point locations keyed by (kind, id) and answers radius queries
// sorted ascending by distance.
type Index interface {
	Upsert(ctx context.Context, kind Kind, id types.ID, p types.Point) error
	Remove(ctx context.Context, kind Kind, id types.ID) error
	Nearby(ctx context.Context, kind Kind, center types.Point, radiusKm float64, limit int) ([]Match, error)
}

func validateQuery(kind Kind, center types.Point, radiusKm float64, limit int) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := ValidatePoint(center); err != nil {
		return err
	}
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return ErrInvalidRadius
	}
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
