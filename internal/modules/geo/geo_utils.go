// Package geo holds distance math and the nearby-search indexes.
package geo

import (
	"errors"
	"fmt"
	"math"

	"farmhaul/internal/types"
)

const earthRadiusKm = 6371.0

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrInvalidKind       = errors.New("invalid location kind")
	ErrInvalidLimit      = errors.New("invalid result limit")
)

// ValidatePoint rejects out-of-range coordinates instead of clamping them.
func ValidatePoint(p types.Point) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90,90]", ErrInvalidCoordinate, p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180,180]", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// DistanceKm returns the unrounded great-circle distance between a and b.
// Both points must already be validated.
func DistanceKm(a, b types.Point) float64 {
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Distance validates both points before computing the distance.
func Distance(a, b types.Point) (float64, error) {
	if err := ValidatePoint(a); err != nil {
		return 0, err
	}
	if err := ValidatePoint(b); err != nil {
		return 0, err
	}
	return DistanceKm(a, b), nil
}

// RoundKm rounds a distance to 2 decimal places for display.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// boxPad widens the box slightly so float error never drops a point that the
// exact distance check would keep.
const boxPad = 1e-7

type bbox struct {
	minLat, maxLat float64
	minLng, maxLng float64
	anyLng         bool
}

// boundingBox returns the lat/lng rectangle enclosing the circle of radiusKm
// around c. Near the poles every longitude is admitted.
func boundingBox(c types.Point, radiusKm float64) bbox {
	angular := radiusKm / earthRadiusKm
	dLat := radiansToDegrees(angular) + boxPad

	b := bbox{minLat: c.Lat - dLat, maxLat: c.Lat + dLat}
	if b.minLat <= -90 || b.maxLat >= 90 || angular >= math.Pi/2 {
		b.minLat = math.Max(b.minLat, -90)
		b.maxLat = math.Min(b.maxLat, 90)
		b.anyLng = true
		return b
	}

	dLng := radiansToDegrees(math.Asin(math.Sin(angular)/math.Cos(degreesToRadians(c.Lat)))) + boxPad
	b.minLng = c.Lng - dLng
	b.maxLng = c.Lng + dLng
	return b
}

func (b bbox) contains(p types.Point) bool {
	if p.Lat < b.minLat || p.Lat > b.maxLat {
		return false
	}
	switch {
	case b.anyLng:
		return true
	case b.minLng < -180:
		// box crosses the antimeridian on the west side
		return p.Lng >= b.minLng+360 || p.Lng <= b.maxLng
	case b.maxLng > 180:
		return p.Lng >= b.minLng || p.Lng <= b.maxLng-360
	default:
		return p.Lng >= b.minLng && p.Lng <= b.maxLng
	}
}
