package contract

import (
	"context"
)

// Awaitable is implemented by values that become available later.
// A handler result or captured value that is Awaitable is awaited before it is used.
type Awaitable interface {
	AwaitValue(ctx context.Context) (any, error)
}

// Task is the result of an asynchronous computation.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on its own goroutine and returns a Task for its result.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}

	go func() {
		defer close(t.done)
		t.value, t.err = fn()
	}()

	return t
}

// Resolved returns a completed Task holding value.
func Resolved[T any](value T) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), value: value}
	close(t.done)

	return t
}

// Failed returns a completed Task holding err.
func Failed[T any](err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), err: err}
	close(t.done)

	return t
}

// Await blocks until the task completes or ctx is done.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	var zero T

	if t == nil || t.done == nil {
		return zero, ErrNotAwaitable
	}

	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// AwaitValue implements Awaitable.
func (t *Task[T]) AwaitValue(ctx context.Context) (any, error) {
	return t.Await(ctx)
}

// resolve awaits value if it is Awaitable and returns it unchanged otherwise.
func resolve(ctx context.Context, value any) (any, error) {
	if awaitable, ok := value.(Awaitable); ok {
		return awaitable.AwaitValue(ctx)
	}

	return value, nil
}
