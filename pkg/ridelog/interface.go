package ridelog

import (
	"context"

	"hershield/internal/models"
)

// Sink is the best-effort ride audit log. Append and UpdateStatus are fire
// and forget from the engine's point of view: errors are logged by callers,
// never fed back into escalation decisions.
type Sink interface {
	Append(ctx context.Context, ride *models.RideSession) error
	UpdateStatus(ctx context.Context, rideID string, status models.RideStatus) error
}
