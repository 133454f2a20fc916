package telephony

import (
	"context"
	"sync"
)

// StubDialer records dialed numbers instead of placing calls. On a real
// device the dial action is a tel: intent handled by the OS, which has no
// server-side equivalent.
type StubDialer struct {
	mu     sync.Mutex
	dialed []string
	err    error
}

func NewStubDialer() *StubDialer {
	return &StubDialer{}
}

func (s *StubDialer) Dial(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.dialed = append(s.dialed, number)
	return nil
}

func (s *StubDialer) Dialed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.dialed))
	copy(out, s.dialed)
	return out
}

// Fail makes every subsequent Dial return err.
func (s *StubDialer) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
