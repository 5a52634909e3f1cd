package containerizer

import "fmt"

// ProvisionError reports a container that could not be started or never
// became ready.
type ProvisionError struct {
	Reference string // image:tag
	Stage     string // "start", "endpoint", ...
	Err       error
}

func (e *ProvisionError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("failed to provision %s: %v", e.Reference, e.Err)
	}
	return fmt.Sprintf("failed to provision %s (%s): %v", e.Reference, e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}
