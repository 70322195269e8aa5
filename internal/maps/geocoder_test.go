package maps

import (
	"context"
	"errors"
	"testing"

	"googlemaps.github.io/maps"
)

type fakeClient struct {
	results []maps.GeocodingResult
	err     error
	got     *maps.GeocodingRequest
}

func (f *fakeClient) Geocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.got = r
	return f.results, f.err
}

func result(lat, lng float64) maps.GeocodingResult {
	var r maps.GeocodingResult
	r.Geometry.Location = maps.LatLng{Lat: lat, Lng: lng}
	return r
}

func TestGeocode(t *testing.T) {
	fc := &fakeClient{results: []maps.GeocodingResult{result(26.8467, 80.9462), result(0, 0)}}
	g := newGeocoderWithClient(fc, "in")

	p, err := g.Geocode(context.Background(), "  Naveen Galla Mandi, Lucknow ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 26.8467 || p.Lng != 80.9462 {
		t.Errorf("point = %+v", p)
	}
	if fc.got.Address != "Naveen Galla Mandi, Lucknow" || fc.got.Region != "in" {
		t.Errorf("request = %+v", fc.got)
	}
}

func TestGeocode_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := newGeocoderWithClient(&fakeClient{}, "in").Geocode(ctx, "nowhere"); !errors.Is(err, ErrNoResults) {
		t.Errorf("empty results err = %v", err)
	}
	boom := errors.New("OVER_QUERY_LIMIT")
	if _, err := newGeocoderWithClient(&fakeClient{err: boom}, "in").Geocode(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("client err = %v", err)
	}
	fc := &fakeClient{}
	if _, err := newGeocoderWithClient(fc, "in").Geocode(ctx, "   "); err == nil || fc.got != nil {
		t.Errorf("blank address should fail before calling the API")
	}
}
