package maps

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("geocoding disabled")

// NoopGeocoder is wired when no Maps API key is configured.
type NoopGeocoder struct{}

func (NoopGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	return "", ErrDisabled
}
