// README: Google Maps geocoding for pickup and drop-off addresses.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"farmhaul/internal/types"
)

var ErrNoResults = errors.New("address not found")

// geocodeClient is the slice of *maps.Client the geocoder needs.
type geocodeClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder resolves free-form addresses to coordinates.
type Geocoder struct {
	client geocodeClient
	region string
}

// NewGeocoder creates a Geocoder with the given API key. region biases results (e.g. "in").
func NewGeocoder(apiKey, region string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

func newGeocoderWithClient(c geocodeClient, region string) *Geocoder {
	return &Geocoder{client: c, region: region}
}

// Geocode returns the first result's location for address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (types.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.Point{}, fmt.Errorf("geocode: empty address")
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoResults)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
