package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert is the escalation payload fanned out to trusted contacts. It is built
// fresh for each escalation and never persisted as-is; AlertRecord is the
// audit-log shape.
type Alert struct {
	Body     string           `json:"body"`
	Contacts []TrustedContact `json:"contacts"`
	Hotline  string           `json:"hotline"`
	Position *Position        `json:"position,omitempty"`
	Source   TriggerKind      `json:"source"`
}

type DeliveryOutcome struct {
	ContactID   primitive.ObjectID `json:"contact_id"`
	PhoneNumber string             `json:"phone_number"`
	Delivered   bool               `json:"delivered"`
	Error       string             `json:"error,omitempty"`
}

type FanoutReport struct {
	Dialed      bool              `json:"dialed"`
	Notified    int               `json:"notified"`
	Failed      int               `json:"failed"`
	Unsupported bool              `json:"unsupported"`
	Outcomes    []DeliveryOutcome `json:"outcomes"`
}

type AlertRecord struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RideID        *primitive.ObjectID `json:"ride_id,omitempty" bson:"ride_id,omitempty"`
	Source        TriggerKind         `json:"source" bson:"source"`
	Position      *Position           `json:"position,omitempty" bson:"position,omitempty"`
	Hotline       string              `json:"hotline" bson:"hotline"`
	NotifiedCount int                 `json:"notified_count" bson:"notified_count"`
	FailedCount   int                 `json:"failed_count" bson:"failed_count"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
}
