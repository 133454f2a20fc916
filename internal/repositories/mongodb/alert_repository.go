package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hershield/internal/models"
	"hershield/internal/repositories/interfaces"
)

type alertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) interfaces.AlertRepository {
	return &alertRepository{
		collection: db.Collection("alerts"),
	}
}

func (r *alertRepository) Create(ctx context.Context, record *models.AlertRecord) error {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to create alert record: %w", err)
	}

	return nil
}

func (r *alertRepository) List(ctx context.Context, limit int64) ([]models.AlertRecord, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.AlertRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode alert records: %w", err)
	}

	return records, nil
}
