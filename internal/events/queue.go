package events

import (
	"context"
	"errors"
	"sync"
)

// Queue accepts asset events for delivery to downstream consumers.
type Queue interface {
	Publish(ctx context.Context, event Event) error
	Ping(ctx context.Context) error
	Close() error
}

// Subscription represents an active in-process event stream.
type Subscription interface {
	Events() <-chan Event
	Close()
}

var errTypeRequired = errors.New("event type is required")

// MemoryQueue fans events out to in-process subscribers. Slow subscribers
// miss events rather than blocking publishers.
type MemoryQueue struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]struct{}
	buffer int
	closed bool
}

// NewMemoryQueue initialises an in-memory fan-out queue suitable for tests and
// single-process deployments.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 32
	}
	return &MemoryQueue{
		subs:   make(map[*memorySubscription]struct{}),
		buffer: buffer,
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return errTypeRequired
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errors.New("queue closed")
	}
	for sub := range q.subs {
		select {
		case sub.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Ping always succeeds; the memory queue has no external dependency.
func (q *MemoryQueue) Ping(context.Context) error {
	return nil
}

// Close detaches and closes every subscription.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	subs := make([]*memorySubscription, 0, len(q.subs))
	for sub := range q.subs {
		subs = append(subs, sub)
	}
	q.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

func (q *MemoryQueue) Subscribe() Subscription {
	sub := &memorySubscription{
		queue: q,
		ch:    make(chan Event, q.buffer),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	q.subs[sub] = struct{}{}
	return sub
}

type memorySubscription struct {
	once  sync.Once
	queue *MemoryQueue
	ch    chan Event
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() {
	s.once.Do(func() {
		s.queue.mu.Lock()
		delete(s.queue.subs, s)
		s.queue.mu.Unlock()
		close(s.ch)
	})
}
