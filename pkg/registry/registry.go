// Package registry holds the tests a doco suite runs.
//
// Tests are registered explicitly, usually from init functions of the test
// packages or at the top of main, before doco.Main starts the suite:
//
//	func init() {
//		registry.MustRegister("checks_home_page", checksHomePage)
//	}
//
// Entries keep their registration order, and that is the order in which the
// suite runs them. Once the suite has started the default registry is frozen
// and further registrations fail.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"doco/pkg/browser"
	"doco/pkg/logging"

	"github.com/samber/lo"
)

const registrySubsystem = "Registry"

// TestFunc is a test body. It receives a client bound to a freshly
// provisioned environment and reports failure by returning an error.
type TestFunc func(ctx context.Context, client *browser.Client) error

// Entry is one registered test.
type Entry struct {
	Name string
	Func TestFunc
}

// ErrFrozen is returned by Register after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// Registry is an append-only, insertion-ordered list of tests.
type Registry struct {
	mu      sync.Mutex
	entries []Entry
	names   map[string]struct{}
	frozen  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register appends a test. Names must be unique and non-empty.
func (r *Registry) Register(name string, fn TestFunc) error {
	if name == "" {
		return errors.New("test name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("test %s has no function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("cannot register %s: %w", name, ErrFrozen)
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("test %s is already registered", name)
	}

	r.names[name] = struct{}{}
	r.entries = append(r.entries, Entry{Name: name, Func: fn})
	logging.Debug(registrySubsystem, "Registered test %s", name)
	return nil
}

// MustRegister is Register that panics on error, for use in init functions.
func (r *Registry) MustRegister(name string, fn TestFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Freeze stops further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Entries returns a copy of the registered tests in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Filter returns the entries whose name matches the glob pattern, keeping
// registration order. An empty pattern matches everything.
func (r *Registry) Filter(pattern string) ([]Entry, error) {
	entries := r.Entries()
	if pattern == "" {
		return entries, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid test filter %q: %w", pattern, err)
	}
	return lo.Filter(entries, func(e Entry, _ int) bool {
		ok, _ := path.Match(pattern, e.Name)
		return ok
	}), nil
}

var defaultRegistry = New()

// Default returns the process-wide registry used by Register.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a test to the default registry.
func Register(name string, fn TestFunc) error {
	return defaultRegistry.Register(name, fn)
}

// MustRegister adds a test to the default registry and panics on error.
func MustRegister(name string, fn TestFunc) {
	defaultRegistry.MustRegister(name, fn)
}
