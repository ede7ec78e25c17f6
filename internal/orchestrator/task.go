package orchestrator

import (
	"context"
	"fmt"
)

// Task is a handle to a build running in the background. The caller decides
// whether to wait on it; its error is kept until someone asks.
type Task struct {
	name    string
	done    chan struct{}
	results []*Result
	err     error
}

// Start runs fn on its own goroutine. A panic in fn is turned into the
// task's error.
func Start(ctx context.Context, name string, fn func(ctx context.Context) ([]*Result, error)) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		results, err := fn(ctx)
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		}
		t.results, t.err = results, err
	}()
	return t
}

// Name identifies the task in logs
func (t *Task) Name() string {
	return t.name
}

// Done is closed when the task finishes
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task error, nil while it is still running
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Results returns what the task built, nil while it is still running
func (t *Task) Results() []*Result {
	select {
	case <-t.done:
		return t.results
	default:
		return nil
	}
}
