package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
)

// ContactRepository owns the trusted-contact collection. The escalation
// engine only uses the read path (List); the write path serves the
// contact-management endpoints.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.TrustedContact) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TrustedContact, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*models.TrustedContact, error)
	List(ctx context.Context) ([]models.TrustedContact, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
