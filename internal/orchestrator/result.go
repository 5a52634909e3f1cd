package orchestrator

import (
	"fmt"
	"time"
)

// Status is the outcome of one test.
type Status string

const (
	// StatusPassed means the test body returned nil.
	StatusPassed Status = "PASSED"
	// StatusFailed means the test body failed, panicked or timed out.
	StatusFailed Status = "FAILED"
	// StatusError means the environment could not be provisioned or the
	// browser session could not be opened, so the body never ran.
	StatusError Status = "ERROR"
	// StatusSkipped means the test was never run, for example after a
	// failure with fail-fast enabled.
	StatusSkipped Status = "SKIPPED"
)

// Result is what Run reports for one test.
type Result struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
	// Warnings holds teardown problems. They never change Status.
	Warnings []*TeardownWarning
}

// Passed reports whether the test passed.
func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

// TeardownWarning records a container or session that could not be released.
type TeardownWarning struct {
	Resource string
	Err      error
}

func (w *TeardownWarning) Error() string {
	return fmt.Sprintf("teardown of %s: %v", w.Resource, w.Err)
}

func (w *TeardownWarning) Unwrap() error {
	return w.Err
}
