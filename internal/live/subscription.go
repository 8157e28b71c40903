// Package live wraps store-provided live queries into stoppable subscriptions.
//
// Every delivery is the complete current result set of the query, so a
// subscription only ever keeps the newest undelivered snapshot: a slow
// consumer skips intermediate result sets instead of queueing them.
package live

import (
	"context"
	"sync"
)

// Snapshot is one full delivery of a live query
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// WatchFunc runs until ctx is done and calls emit with every result set.
// A non-nil return is delivered to the consumer as a final error snapshot.
type WatchFunc[T any] func(ctx context.Context, emit func([]T)) error

// Subscription is a running live query
type Subscription[T any] struct {
	updates chan Snapshot[T]
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

// Start runs watch in its own goroutine until Stop is called or ctx ends
func Start[T any](ctx context.Context, watch WatchFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan Snapshot[T], 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	go func() {
		defer close(s.done)
		err := watch(ctx, func(items []T) {
			s.deliver(Snapshot[T]{Items: items})
		})
		if err != nil && ctx.Err() == nil {
			s.deliver(Snapshot[T]{Err: err})
		}
	}()

	return s
}

// deliver replaces any snapshot the consumer has not picked up yet
func (s *Subscription[T]) deliver(snap Snapshot[T]) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Updates yields snapshots; it is never closed, select on Done as well
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Done is closed once the underlying watch has returned
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Stop releases the underlying channel and waits for the watch to return.
// It is safe to call more than once.
func (s *Subscription[T]) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Event is a snapshot tagged with the registry key it was produced for
type Event struct {
	Key   string
	Items any
	Err   error
}

// Pump forwards every snapshot of sub into out, tagged with key, until the
// subscription stops or ctx ends. A final error snapshot is forwarded
// before Pump returns.
func Pump[T any](ctx context.Context, key string, sub *Subscription[T], out chan<- Event) {
	forward := func(snap Snapshot[T]) bool {
		select {
		case out <- Event{Key: key, Items: snap.Items, Err: snap.Err}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-sub.Updates():
			if !forward(snap) {
				return
			}
		case <-sub.Done():
			select {
			case snap := <-sub.Updates():
				forward(snap)
			default:
			}
			return
		}
	}
}
