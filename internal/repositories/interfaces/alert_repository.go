package interfaces

import (
	"context"

	"hershield/internal/models"
)

// AlertRepository is the escalation audit log.
type AlertRepository interface {
	Create(ctx context.Context, record *models.AlertRecord) error
	List(ctx context.Context, limit int64) ([]models.AlertRecord, error)
}
