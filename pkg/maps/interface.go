package maps

import "context"

// Geocoder resolves coordinates to human-readable addresses for alert bodies
// and the ride log's origin column. Best effort: callers must tolerate errors
// and fall back to raw coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
