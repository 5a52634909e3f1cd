package topology

import "fmt"

// ValidationError reports a topology entity that is missing a required field
// or carries an invalid value. It is returned before any container starts.
type ValidationError struct {
	Entity string // "server", "service" or "topology"
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

func missing(entity, field string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Reason: "is required"}
}
