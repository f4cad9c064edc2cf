// Package geocode resolves location addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/playperu/mapquiz/internal/mapquiz"
)

// ErrNoResults is returned when the provider answered but found nothing.
var ErrNoResults = errors.New("geocode: zero results")

// Geocoder resolves a free-text address. Implementations must return an
// error for both a failed request and an empty result set.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (mapquiz.Coord, error)
}

// Google calls the Google Maps Geocoding API.
type Google struct {
	client *maps.Client
}

// NewGoogle builds a client. Extra options (base URL, HTTP client) are
// passed through to the maps package.
func NewGoogle(apiKey string, qps int, opts ...maps.ClientOption) (*Google, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey), maps.WithRateLimit(qps)}, opts...)
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Geocode(ctx context.Context, address string) (mapquiz.Coord, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return mapquiz.Coord{}, fmt.Errorf("geocoding %q: %w", address, err)
	}
	if len(results) == 0 {
		return mapquiz.Coord{}, fmt.Errorf("geocoding %q: %w", address, ErrNoResults)
	}
	loc := results[0].Geometry.Location
	return mapquiz.Coord{Lat: loc.Lat, Lng: loc.Lng}, nil
}
