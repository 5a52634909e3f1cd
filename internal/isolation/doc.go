// Package isolation runs a single test body in its own failure domain.
//
// Every call to Shell.Execute starts a fresh goroutine with its own context,
// waits for it to report back over a channel, and converts panics, returned
// errors and timeouts into *ExecutionError. The caller's goroutine never
// runs test code, so a misbehaving test cannot unwind through the
// orchestrator or skip its teardown.
package isolation
