package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusEmergency RideStatus = "emergency"
)

type RideSession struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FromAddress   string             `json:"from_address" bson:"from_address"`
	Destination   string             `json:"destination" bson:"destination" validate:"required,min=3"`
	VehicleNumber string             `json:"vehicle_number" bson:"vehicle_number" validate:"required"`
	ContactPhone  string             `json:"contact_phone" bson:"contact_phone" validate:"required,len=10"`
	Status        RideStatus         `json:"status" bson:"status"`
	StartedAt     time.Time          `json:"started_at" bson:"started_at"`
	EndedAt       *time.Time         `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
