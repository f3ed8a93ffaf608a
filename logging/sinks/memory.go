package sinks

import (
	"context"
	"sync"

	"easy-ai/server/logging"
)

// MemorySink keeps events in process, for tests and the /events endpoint.
// With a positive capacity only the newest events are kept.
type MemorySink struct {
	mu       sync.RWMutex
	events   []logging.Event
	capacity int
	start    int
}

func NewMemorySink() *MemorySink {
	return NewBoundedMemorySink(0)
}

func NewBoundedMemorySink(capacity int) *MemorySink {
	return &MemorySink{capacity: max(capacity, 0)}
}

func (s *MemorySink) Write(event logging.Event) error {
	if event.Extra != nil {
		extra := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			extra[k] = v
		}
		event.Extra = extra
	}
	event.Targets = append([]logging.EntityRef(nil), event.Targets...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity == 0 || len(s.events) < s.capacity {
		s.events = append(s.events, event)
		return nil
	}
	s.events[s.start] = event
	s.start = (s.start + 1) % s.capacity
	return nil
}

// Events returns the retained events, oldest first.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordered()
}

func (s *MemorySink) ordered() []logging.Event {
	out := make([]logging.Event, 0, len(s.events))
	out = append(out, s.events[s.start:]...)
	return append(out, s.events[:s.start]...)
}

// Recent returns at most n events, newest first.
func (s *MemorySink) Recent(n int) []logging.Event {
	s.mu.RLock()
	events := s.ordered()
	s.mu.RUnlock()
	if n < 0 || n > len(events) {
		n = len(events)
	}
	out := make([]logging.Event, 0, n)
	for i := len(events) - 1; i >= len(events)-n; i-- {
		out = append(out, events[i])
	}
	return out
}

func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	var matched []logging.Event
	for _, event := range s.Events() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.start = 0
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
