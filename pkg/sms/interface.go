package sms

import "context"

// AlertSender delivers emergency alert texts to trusted contacts.
// Implementations report platform support up front so the fanout can surface
// one aggregate "SMS unsupported" notice instead of a failure per contact.
type AlertSender interface {
	Send(ctx context.Context, request *AlertRequest) (*AlertResult, error)
	Supported() bool
}

type AlertRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type AlertResult struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
