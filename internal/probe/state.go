package probe

import (
	"sync"
	"time"
)

// State keeps process-wide bookkeeping about the last inbound message.
type State struct {
	mu        sync.RWMutex
	received  bool
	message   any
	timestamp time.Time
}

func NewState() *State { return &State{} }

func (s *State) record(msg any, at time.Time) {
	s.mu.Lock()
	s.received = true
	s.message = msg
	s.timestamp = at
	s.mu.Unlock()
}

// LastReceived describes the most recent inbound message.
type LastReceived struct {
	Timestamp *time.Time `json:"timestamp"`
	Message   any        `json:"message"`
}

// QueueStatus is the introspection snapshot served by the status endpoint.
type QueueStatus struct {
	PendingCount    int          `json:"pendingCount"`
	ReceivedCount   int          `json:"receivedCount"`
	LastReceived    LastReceived `json:"lastReceived"`
	MessageReceived bool         `json:"messageReceived"`
}

func (s *State) snapshot() (LastReceived, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := LastReceived{Message: s.message}
	if !s.timestamp.IsZero() {
		ts := s.timestamp
		last.Timestamp = &ts
	}
	return last, s.received
}
