package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SafetyCheckState string

const (
	SafetyCheckPending    SafetyCheckState = "pending"
	SafetyCheckConfirmed  SafetyCheckState = "confirmed"
	SafetyCheckEscalated  SafetyCheckState = "escalated"
	SafetyCheckCancelled  SafetyCheckState = "cancelled"
	// SafetyCheckUnresolved is a missed deadline below the strike limit: the
	// check closes, the strike counter ticks up, and no escalation happens.
	SafetyCheckUnresolved SafetyCheckState = "unresolved"
)

func (s SafetyCheckState) Terminal() bool {
	switch s {
	case SafetyCheckConfirmed, SafetyCheckEscalated, SafetyCheckCancelled, SafetyCheckUnresolved:
		return true
	}
	return false
}

type SafetyCheck struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger         TriggerEvent       `json:"trigger" bson:"trigger"`
	State           SafetyCheckState   `json:"state" bson:"state"`
	StartedAt       time.Time          `json:"started_at" bson:"started_at"`
	Deadline        time.Time          `json:"deadline" bson:"deadline"`
	UnresolvedCount int                `json:"unresolved_count" bson:"unresolved_count"`
}
