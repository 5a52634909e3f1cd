package browser

import (
	"context"
	"fmt"
)

// Connector opens sessions on a remote automation endpoint.
type Connector interface {
	// Connect fails with *ConnectionError when the endpoint refuses.
	Connect(ctx context.Context, endpoint string) (Session, error)
}

// Session is one browser connection. Sessions are never shared between
// tests.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Query(ctx context.Context, selector string) (Element, error)
	ReadText(ctx context.Context, el Element) (string, error)
	Close() error
}

// Element is a handle to something found by Query.
type Element interface {
	Selector() string
}

// ConnectionError reports a session that could not be established.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to automation driver at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
