package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
)

type RideRepository interface {
	Create(ctx context.Context, ride *models.RideSession) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.RideSession, error)
	GetActive(ctx context.Context) (*models.RideSession, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RideStatus) error
	List(ctx context.Context, limit int64) ([]models.RideSession, error)
}
