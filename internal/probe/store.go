// Package probe implements the queue round-trip verification engine: a
// correlated test message is published, tracked as pending, and confirmed
// when the transport delivers it back to this process.
package probe

import (
	"context"
	"sync"
	"time"
)

// PendingEntry records a message that was published and is awaiting its echo.
type PendingEntry struct {
	MessageID  string    `json:"messageId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"timestamp"`
	Received   bool      `json:"received"`
	ReceivedAt time.Time `json:"receivedAt,omitempty"`
}

// ReceivedEntry records any inbound message observed by this process,
// correlated or not.
type ReceivedEntry struct {
	Message    any               `json:"message"`
	ReceivedAt time.Time         `json:"receivedAt"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// SweepResult reports how many entries a sweep removed from each map.
type SweepResult struct {
	Pending  int
	Received int
}

// MessageStore is the pending/received registry shared by the publish path
// and the inbound delivery path. MarkReceived is the only operation that may
// flip an entry to received.
type MessageStore interface {
	RegisterPending(ctx context.Context, correlationID, messageID, content string) error
	MarkReceived(ctx context.Context, correlationID string, at time.Time) (bool, error)
	RecordReceived(ctx context.Context, correlationID string, entry ReceivedEntry) error
	IsReceived(ctx context.Context, correlationID string) (bool, error)
	Received(ctx context.Context, correlationID string) (ReceivedEntry, bool, error)
	Counts(ctx context.Context) (pending, received int, err error)
	Sweep(ctx context.Context, retention time.Duration, now time.Time) (SweepResult, error)
}

// MemoryStore is the process-local MessageStore. State is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	pending  map[string]*PendingEntry
	received map[string]ReceivedEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:  make(map[string]*PendingEntry),
		received: make(map[string]ReceivedEntry),
		now:      time.Now,
	}
}

// RegisterPending stores a fresh pending entry, replacing any previous entry
// under the same correlation id.
func (s *MemoryStore) RegisterPending(_ context.Context, correlationID, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[correlationID] = &PendingEntry{
		MessageID: messageID,
		Content:   content,
		CreatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) MarkReceived(_ context.Context, correlationID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[correlationID]
	if !ok {
		return false, nil
	}
	p.Received = true
	p.ReceivedAt = at
	return true, nil
}

func (s *MemoryStore) RecordReceived(_ context.Context, correlationID string, entry ReceivedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received[correlationID] = entry
	return nil
}

func (s *MemoryStore) IsReceived(_ context.Context, correlationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[correlationID]
	return ok && p.Received, nil
}

func (s *MemoryStore) Received(_ context.Context, correlationID string) (ReceivedEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.received[correlationID]
	return e, ok, nil
}

// pendingEntry returns a copy of the pending entry for correlationID.
func (s *MemoryStore) pendingEntry(correlationID string) (PendingEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[correlationID]
	if !ok {
		return PendingEntry{}, false
	}
	return *p, true
}

func (s *MemoryStore) Counts(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending), len(s.received), nil
}

// Sweep drops pending entries created before now-retention and received
// entries that arrived before it. The two maps are pruned independently.
func (s *MemoryStore) Sweep(_ context.Context, retention time.Duration, now time.Time) (SweepResult, error) {
	cutoff := now.Add(-retention)
	var res SweepResult

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(s.pending, id)
			res.Pending++
		}
	}
	for id, r := range s.received {
		if r.ReceivedAt.Before(cutoff) {
			delete(s.received, id)
			res.Received++
		}
	}
	return res, nil
}
