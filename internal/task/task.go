// Package task runs simulated backend calls as cancellable tasks with a single
// suspension point: the artificial latency before the result is produced.
package task

import (
	"context"
	"time"
)

type noLatencyKey struct{}

// WithoutLatency returns a context under which Run skips the artificial delay.
func WithoutLatency(ctx context.Context) context.Context {
	return context.WithValue(ctx, noLatencyKey{}, true)
}

// LatencyDisabled reports whether ctx was marked by WithoutLatency.
func LatencyDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noLatencyKey{}).(bool)
	return v
}

// Task is the pending result of one simulated call.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Run waits delay, then produces the result with fn. fn runs only if the task
// is still live when the delay elapses; it must not suspend again, so any
// read-modify-write it performs is uninterrupted.
func Run[T any](ctx context.Context, delay time.Duration, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}

	if LatencyDisabled(ctx) {
		delay = 0
	}

	go func() {
		defer close(t.done)
		defer cancel()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				t.err = ctx.Err()
				return
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			t.err = err
			return
		}
		t.val, t.err = fn(ctx)
	}()

	return t
}

// Await blocks until the task finishes or ctx ends. Ending ctx does not
// cancel the task; use Cancel for that.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel drops the task. If the delay has not elapsed, fn never runs.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Done is closed once the task has a result (or was cancelled).
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Do runs fn after delay and waits for the outcome. If ctx ends during the
// delay fn never runs and ctx's error is returned; once fn has started its
// result is always reported.
func Do[T any](ctx context.Context, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	return Run(ctx, delay, fn).Await(context.Background())
}
