package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hershield/internal/models"
	"hershield/internal/repositories/interfaces"
)

type rideRepository struct {
	collection *mongo.Collection
}

func NewRideRepository(db *mongo.Database) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("ride_sessions"),
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.RideSession) error {
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, ride); err != nil {
		return fmt.Errorf("failed to create ride session: %w", err)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.RideSession, error) {
	var ride models.RideSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride session: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) GetActive(ctx context.Context) (*models.RideSession, error) {
	var ride models.RideSession
	err := r.collection.FindOne(ctx, bson.M{"status": models.RideStatusActive}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active ride: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RideStatus) error {
	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status != models.RideStatusActive {
		update["ended_at"] = time.Now()
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update ride status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *rideRepository) List(ctx context.Context, limit int64) ([]models.RideSession, error) {
	opts := options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ride sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []models.RideSession
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, fmt.Errorf("failed to decode ride sessions: %w", err)
	}

	return rides, nil
}
