package browser

import (
	"context"
	"fmt"
	"net/url"
)

// Client is what a test body receives: a session plus the base address of the
// application under test.
type Client struct {
	session Session
	base    *url.URL
}

// NewClient binds a session to baseURL.
func NewClient(session Session, baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	return &Client{session: session, base: base}, nil
}

// BaseURL returns the application's address as seen by the browser.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Session returns the underlying session for anything the Client does not
// cover.
func (c *Client) Session() Session {
	return c.session
}

// URL resolves path against the base address. Absolute URLs are returned
// unchanged.
func (c *Client) URL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// Goto navigates to path relative to the application.
func (c *Client) Goto(ctx context.Context, path string) error {
	target, err := c.URL(path)
	if err != nil {
		return err
	}
	if err := c.session.Navigate(ctx, target); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	return nil
}

// Find returns the first element matching selector.
func (c *Client) Find(ctx context.Context, selector string) (Element, error) {
	el, err := c.session.Query(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to find %q: %w", selector, err)
	}
	return el, nil
}

// Text returns the text content of the first element matching selector.
func (c *Client) Text(ctx context.Context, selector string) (string, error) {
	el, err := c.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := c.session.ReadText(ctx, el)
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return text, nil
}
