package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeConnector hands out FakeSessions. Pages maps URL -> selector -> text and
// is shared by every session it creates.
type FakeConnector struct {
	mu sync.Mutex

	Pages map[string]map[string]string
	// Err, if set, makes every Connect fail.
	Err error

	sessions  []*FakeSession
	endpoints []string
}

// NewFakeConnector returns a connector serving pages.
func NewFakeConnector(pages map[string]map[string]string) *FakeConnector {
	if pages == nil {
		pages = map[string]map[string]string{}
	}
	return &FakeConnector{Pages: pages}
}

func (f *FakeConnector) Connect(ctx context.Context, endpoint string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.endpoints = append(f.endpoints, endpoint)
	if f.Err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: f.Err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	s := &FakeSession{pages: f.Pages}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// Sessions returns every session handed out so far.
func (f *FakeConnector) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

// Endpoints returns the endpoints Connect was called with.
func (f *FakeConnector) Endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.endpoints...)
}

// FakeSession records navigation and serves canned text.
type FakeSession struct {
	mu      sync.Mutex
	pages   map[string]map[string]string
	current string
	visited []string
	closed  bool
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.visited = append(s.visited, url)
	if _, ok := s.pages[url]; !ok {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", url)
	}
	s.current = url
	return nil
}

func (s *FakeSession) Query(ctx context.Context, selector string) (Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("session closed")
	}
	if _, ok := s.pages[s.current][selector]; !ok {
		return nil, fmt.Errorf("no element matches %q on %s", selector, s.current)
	}
	return fakeElement(selector), nil
}

func (s *FakeSession) ReadText(ctx context.Context, el Element) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.New("session closed")
	}
	return s.pages[s.current][el.Selector()], nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Visited returns navigated URLs in order.
func (s *FakeSession) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeElement string

func (e fakeElement) Selector() string { return string(e) }
