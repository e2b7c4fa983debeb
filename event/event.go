package event

import (
	"context"
	"sync"

	"git.tatikoma.dev/corpix/strand/errors"
)

type void = struct{}

var (
	ErrResolved    = errors.New("event is already resolved")
	ErrNotResolved = errors.New("event is not resolved")
)

type (
	// Event hands a single result (a value or a failure) from one
	// producer to any number of waiters. It may be resolved exactly
	// once per cycle, Reset begins a new cycle.
	Event[T any] struct {
		mu    sync.Mutex
		cycle *cycle[T]
	}

	// cycle outcome is immutable once done is closed, waiters holding
	// a cycle read it without the event lock.
	cycle[T any] struct {
		done  chan void
		value T
		err   error
	}
)

func New[T any]() *Event[T] {
	return &Event[T]{cycle: newCycle[T]()}
}

func newCycle[T any]() *cycle[T] {
	return &cycle[T]{done: make(chan void)}
}

func (c *cycle[T]) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Resolve stores value and wakes every waiter of the current cycle.
// Returns ErrResolved if the cycle already holds a value or a failure.
func (e *Event[T]) Resolve(value T) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cycle.resolved() {
		return ErrResolved
	}
	e.cycle.value = value
	close(e.cycle.done)
	return nil
}

// Fail stores err as the cycle outcome, with the same exclusivity
// rule as Resolve.
func (e *Event[T]) Fail(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cycle.resolved() {
		return ErrResolved
	}
	e.cycle.err = err
	close(e.cycle.done)
	return nil
}

// Wait blocks until the cycle current at call time is resolved, then
// returns its value or its failure. Returns immediately when the event
// is already resolved. Any number of callers observe the same outcome.
func (e *Event[T]) Wait(ctx context.Context) (T, error) {
	e.mu.Lock()
	c := e.cycle
	e.mu.Unlock()

	// an already resolved event returns its outcome even when ctx is
	// already done
	if c.resolved() {
		return c.value, c.err
	}

	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done exposes the current cycle's completion channel for select
// composition. The channel is closed at resolution and abandoned by
// Reset.
func (e *Event[T]) Done() <-chan void {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle.done
}

func (e *Event[T]) IsResolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle.resolved()
}

// Peek reads the outcome without blocking. Returns ErrNotResolved
// while the cycle is unset, otherwise the value or the stored failure.
func (e *Event[T]) Peek() (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cycle.resolved() {
		var zero T
		return zero, ErrNotResolved
	}
	return e.cycle.value, e.cycle.err
}

// Reset discards any stored value or failure and begins a new cycle.
// Waiters of the previous unresolved cycle are not woken and never
// observe the new cycle's outcome.
func (e *Event[T]) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cycle = newCycle[T]()
}
