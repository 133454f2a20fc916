package models

import (
	"time"
)

type TriggerKind string

const (
	TriggerKindManual        TriggerKind = "manual"
	TriggerKindVoice         TriggerKind = "voice"
	TriggerKindPeriodicCheck TriggerKind = "periodic_check"
)

type TriggerEvent struct {
	Source        TriggerKind `json:"source" bson:"source"`
	DetectedAt    time.Time   `json:"detected_at" bson:"detected_at"`
	Language      string      `json:"language,omitempty" bson:"language,omitempty"`
	MatchedPhrase string      `json:"matched_phrase,omitempty" bson:"matched_phrase,omitempty"`
	CheckNumber   int         `json:"check_number,omitempty" bson:"check_number,omitempty"`
}
