package sms

import (
	"context"
	"sync"
)

// StubSender stands in for a native SMS transport on platforms without one.
// It records what would have been sent; when constructed unsupported, every
// send fails the capability check rather than pretending delivery happened.
type StubSender struct {
	mu        sync.Mutex
	sent      []AlertRequest
	supported bool
}

func NewStubSender(supported bool) *StubSender {
	return &StubSender{supported: supported}
}

func (s *StubSender) Send(_ context.Context, request *AlertRequest) (*AlertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, *request)
	return &AlertResult{
		MessageID: "stub",
		Status:    "sent",
	}, nil
}

func (s *StubSender) Supported() bool {
	return s.supported
}

// Sent returns a copy of everything recorded so far.
func (s *StubSender) Sent() []AlertRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AlertRequest, len(s.sent))
	copy(out, s.sent)
	return out
}
