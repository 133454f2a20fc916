package models

import (
	"fmt"
	"time"
)

type Position struct {
	Latitude   float64   `json:"latitude" bson:"latitude" validate:"required,min=-90,max=90"`
	Longitude  float64   `json:"longitude" bson:"longitude" validate:"required,min=-180,max=180"`
	Accuracy   *float64  `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Altitude   *float64  `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Speed      *float64  `json:"speed,omitempty" bson:"speed,omitempty"`
	CapturedAt time.Time `json:"captured_at" bson:"captured_at"`
}

// MapLink returns the shareable OpenStreetMap link embedded in alert bodies.
func (p Position) MapLink() string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%f&mlon=%f&zoom=16", p.Latitude, p.Longitude)
}

func (p Position) NewerThan(other *Position) bool {
	if other == nil {
		return true
	}
	return p.CapturedAt.After(other.CapturedAt)
}
