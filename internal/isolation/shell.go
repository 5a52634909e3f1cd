package isolation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ExecutionError is the failure of one test body.
type ExecutionError struct {
	Test  string
	Err   error  // set when the body returned an error or timed out
	Panic any    // set when the body panicked
	Stack []byte // stack of the panicking goroutine
}

func (e *ExecutionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("test %s panicked: %v", e.Test, e.Panic)
	}
	return fmt.Sprintf("test %s failed: %v", e.Test, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TimedOut reports whether the body ran past its deadline.
func (e *ExecutionError) TimedOut() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Func is a test body.
type Func func(ctx context.Context) error

// Shell runs test bodies one at a time in dedicated goroutines.
type Shell struct {
	// Timeout bounds a single body. Zero means no limit beyond the parent
	// context.
	Timeout time.Duration
	// Grace is how long Execute keeps waiting after cancelling a body that
	// overran, giving it a chance to return before being abandoned.
	Grace time.Duration
}

type outcome struct {
	err   error
	panic any
	stack []byte
}

// Execute runs fn and blocks until it finishes, panics, or times out.
// It returns nil on success and *ExecutionError otherwise.
func (s *Shell) Execute(ctx context.Context, name string, fn Func) error {
	workerCtx, cancel := s.workerContext(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{panic: r, stack: debug.Stack()}
			}
			done <- out
		}()
		out.err = fn(workerCtx)
	}()

	select {
	case out := <-done:
		return s.result(name, out, workerCtx.Err())
	case <-workerCtx.Done():
	}

	// The context ended while the body was still running. Cancel it and
	// give it a moment to notice before abandoning it.
	cancel()
	grace := time.NewTimer(s.Grace)
	defer grace.Stop()
	select {
	case out := <-done:
		return s.result(name, out, workerCtx.Err())
	case <-grace.C:
		return &ExecutionError{Test: name, Err: fmt.Errorf("abandoned after %w", workerCtx.Err())}
	}
}

func (s *Shell) workerContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(parent, s.Timeout)
	}
	return context.WithCancel(parent)
}

// result converts an outcome into the Execute return value. A body that
// returned nil after its context ended still counts as failed.
func (s *Shell) result(name string, out outcome, ctxErr error) error {
	if out.panic == nil && out.err == nil {
		out.err = ctxErr
	}
	switch {
	case out.panic != nil:
		return &ExecutionError{Test: name, Panic: out.panic, Stack: out.stack}
	case out.err != nil:
		var ee *ExecutionError
		if errors.As(out.err, &ee) {
			return ee
		}
		return &ExecutionError{Test: name, Err: out.err}
	default:
		return nil
	}
}
