package services

import "time"

// Clock abstracts timer arming so deadline behavior is deterministic in
// tests. The real implementation delegates to time.AfterFunc.
type Clock interface {
	Now() time.Time
	After(d time.Duration, fn func()) TimerHandle
}

type TimerHandle interface {
	// Stop cancels the timer. It reports false when the timer already fired
	// or was stopped before.
	Stop() bool
}

type realClock struct{}

func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration, fn func()) TimerHandle {
	return &realTimer{timer: time.AfterFunc(d, fn)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) Stop() bool {
	return t.timer.Stop()
}
