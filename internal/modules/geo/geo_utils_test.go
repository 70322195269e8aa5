package geo

import (
	"errors"
	"math"
	"testing"

	"farmhaul/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 26.8467, Lng: 80.9462},
			b:         types.Point{Lat: 26.8467, Lng: 80.9462},
			wantKm:    0,
			tolerance: 0.000001,
		},
		{
			name:      "Lucknow to New Delhi (~417km)",
			a:         types.Point{Lat: 26.8467, Lng: 80.9462},
			b:         types.Point{Lat: 28.6139, Lng: 77.2090},
			wantKm:    416.99,
			tolerance: 0.05,
		},
		{
			name:      "Mumbai to Pune (~120km)",
			a:         types.Point{Lat: 19.0760, Lng: 72.8777},
			b:         types.Point{Lat: 18.5204, Lng: 73.8567},
			wantKm:    120,
			tolerance: 3,
		},
		{
			name:      "one degree of latitude",
			a:         types.Point{Lat: 0, Lng: 0},
			b:         types.Point{Lat: 1, Lng: 0},
			wantKm:    111.195,
			tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := haversineKm(25.0, 81.0, 26.0, 82.0)
	d2 := haversineKm(26.0, 82.0, 25.0, 81.0)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistance_RejectsInvalidPoints(t *testing.T) {
	valid := types.Point{Lat: 10, Lng: 10}
	tests := []struct {
		name string
		p    types.Point
	}{
		{"latitude above 90", types.Point{Lat: 90.0001, Lng: 0}},
		{"latitude below -90", types.Point{Lat: -91, Lng: 0}},
		{"longitude above 180", types.Point{Lat: 0, Lng: 180.5}},
		{"longitude below -180", types.Point{Lat: 0, Lng: -200}},
		{"NaN latitude", types.Point{Lat: math.NaN(), Lng: 0}},
		{"infinite longitude", types.Point{Lat: 0, Lng: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Distance(valid, tt.p); !errors.Is(err, ErrInvalidCoordinate) {
				t.Errorf("Distance(valid, %v) err = %v, want ErrInvalidCoordinate", tt.p, err)
			}
			if _, err := Distance(tt.p, valid); !errors.Is(err, ErrInvalidCoordinate) {
				t.Errorf("Distance(%v, valid) err = %v, want ErrInvalidCoordinate", tt.p, err)
			}
		})
	}
}

func TestValidatePoint_Bounds(t *testing.T) {
	for _, p := range []types.Point{
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 0, Lng: 0},
	} {
		if err := ValidatePoint(p); err != nil {
			t.Errorf("ValidatePoint(%v) = %v, want nil", p, err)
		}
	}
}

func TestRoundKm(t *testing.T) {
	if got := RoundKm(353.456); got != 353.46 {
		t.Errorf("RoundKm(353.456) = %v, want 353.46", got)
	}
	if got := RoundKm(0); got != 0 {
		t.Errorf("RoundKm(0) = %v, want 0", got)
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	center := types.Point{Lat: 26.85, Lng: 80.95}
	box := boundingBox(center, 50)

	// points exactly on the circle in the four cardinal directions
	for _, bearing := range []float64{0, 90, 180, 270} {
		p := destination(center, bearing, 49.999)
		if !box.contains(p) {
			t.Errorf("box does not contain point at bearing %v: %v", bearing, p)
		}
	}
	if box.contains(types.Point{Lat: 27.85, Lng: 80.95}) {
		t.Errorf("box should not contain a point ~111km north")
	}
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	center := types.Point{Lat: 0, Lng: 179.9}
	box := boundingBox(center, 50)

	if !box.contains(types.Point{Lat: 0, Lng: -179.9}) {
		t.Errorf("box should wrap across the antimeridian")
	}
	if box.contains(types.Point{Lat: 0, Lng: 170}) {
		t.Errorf("box should not contain a point ~1000km west")
	}
}

func TestBoundingBox_Pole(t *testing.T) {
	box := boundingBox(types.Point{Lat: 89.9, Lng: 0}, 50)
	if !box.anyLng {
		t.Fatalf("box near the pole should admit every longitude")
	}
	if !box.contains(types.Point{Lat: 89.9, Lng: 180}) {
		t.Errorf("box should contain the point across the pole")
	}
}

// destination walks distKm from p along bearing (degrees).
func destination(p types.Point, bearing, distKm float64) types.Point {
	ang := distKm / earthRadiusKm
	br := degreesToRadians(bearing)
	lat1 := degreesToRadians(p.Lat)
	lng1 := degreesToRadians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(br))
	lng2 := lng1 + math.Atan2(math.Sin(br)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))
	return types.Point{Lat: radiansToDegrees(lat2), Lng: radiansToDegrees(lng2)}
}
