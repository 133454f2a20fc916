package push

import (
	"context"
	"sync"
)

// StubProvider records prompts for tests and headless wiring.
type StubProvider struct {
	mu      sync.Mutex
	prompts []PromptRequest
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (s *StubProvider) SendPrompt(_ context.Context, request *PromptRequest) (*PromptResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, *request)
	return &PromptResponse{MessageID: "stub", Success: true}, nil
}

func (s *StubProvider) Prompts() []PromptRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PromptRequest, len(s.prompts))
	copy(out, s.prompts)
	return out
}
