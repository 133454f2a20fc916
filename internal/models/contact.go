package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrustedContact struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DisplayName string             `json:"display_name" bson:"display_name" validate:"required,min=1"`
	PhoneNumber string             `json:"phone_number" bson:"phone_number" validate:"required,len=10"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
