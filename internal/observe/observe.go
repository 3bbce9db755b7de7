// Package observe provides the subscription primitives behind the
// repository's continuous queries: a single-consumer Stream and a
// Broadcaster that fans change notifications out to observers.
package observe

import (
	"context"
	"sync"
)

// Stream delivers successive values to one consumer. The producer calls
// Send until it returns false, then Close; the consumer ranges over C and
// calls Cancel when it no longer cares. Cancel is idempotent and safe to
// call concurrently with Send.
type Stream[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
	}
}

// C is the consumer side. It is closed by the producer after the stream is
// canceled or the producer finishes.
func (s *Stream[T]) C() <-chan T {
	return s.ch
}

// Send delivers v unless the stream is canceled or ctx expires. It reports
// whether the producer should keep going.
func (s *Stream[T]) Send(ctx context.Context, v T) bool {
	select {
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	case s.ch <- v:
		return true
	}
}

// Cancel stops delivery. The producer is expected to notice and Close.
func (s *Stream[T]) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed once the stream is canceled.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Close releases the consumer channel. Only the producer may call it, and
// only once, after its last Send.
func (s *Stream[T]) Close() {
	close(s.ch)
}

// Broadcaster fans out change signals. Signals carry no payload and are
// coalesced per subscriber: a slow observer sees at most one pending
// notification and re-reads current state when it wakes, so Notify never
// blocks on anyone.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan struct{})}
}

// Subscribe registers a listener and returns its signal channel plus an
// unsubscribe func. Unsubscribe is idempotent.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Notify wakes every subscriber. Pending signals coalesce.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
