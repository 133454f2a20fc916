package ridelog

import (
	"context"

	"hershield/internal/models"
)

// NoopSink is wired when no spreadsheet is configured.
type NoopSink struct{}

func (NoopSink) Append(_ context.Context, _ *models.RideSession) error {
	return nil
}

func (NoopSink) UpdateStatus(_ context.Context, _ string, _ models.RideStatus) error {
	return nil
}
