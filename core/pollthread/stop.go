package pollthread

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stopper abstracts how to tell a thread to stop.
type Stopper interface {
	// BeforeWait is invoked before waiting for the thread to exit.
	BeforeWait()

	// AfterWait is invoked after the thread has exited.
	AfterWait()
}

// StopFlag stops a thread by setting an atomic flag.
// A busy-polling thread checks Continue() once per iteration, which is a single atomic load.
// A sleeping thread uses Sleep(), which wakes up early when stop is requested.
type StopFlag struct {
	requested atomic.Bool
	mu        sync.Mutex
	wake      chan struct{}
}

var _ Stopper = (*StopFlag)(nil)

// NewStopFlag constructs a StopFlag.
func NewStopFlag() *StopFlag {
	return &StopFlag{wake: make(chan struct{})}
}

// Continue returns true if the thread should continue.
// This should be invoked within the running thread.
func (s *StopFlag) Continue() bool {
	return !s.requested.Load()
}

// Sleep waits for d, or until stop is requested.
// Returns true if the thread should continue.
func (s *StopFlag) Sleep(d time.Duration) bool {
	s.mu.Lock()
	wake := s.wake
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-wake:
		return false
	case <-timer.C:
		return s.Continue()
	}
}

// BeforeWait requests a stop.
func (s *StopFlag) BeforeWait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requested.CompareAndSwap(false, true) {
		close(s.wake)
	}
}

// AfterWait re-arms the flag, so that the thread may be launched again.
func (s *StopFlag) AfterWait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requested.Load() {
		s.wake = make(chan struct{})
		s.requested.Store(false)
	}
}
