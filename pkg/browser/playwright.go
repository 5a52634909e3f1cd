package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"doco/pkg/logging"

	"github.com/playwright-community/playwright-go"
)

const browserSubsystem = "Browser"

// PlaywrightOptions configures PlaywrightConnector.
type PlaywrightOptions struct {
	// Browser is "chromium", "firefox" or "webkit". Defaults to chromium.
	Browser string
	// Timeout applies to calls whose context carries no deadline.
	Timeout time.Duration
	// SkipInstall assumes the local Playwright driver is already installed.
	SkipInstall bool
}

// PlaywrightConnector connects to a remote `playwright run-server` endpoint.
// The local Playwright driver is started on first use and shared by all
// sessions; each session gets its own browser connection and context.
type PlaywrightConnector struct {
	opts PlaywrightOptions

	mu  sync.Mutex
	pw  *playwright.Playwright
	err error
}

// NewPlaywrightConnector returns a connector; nothing is started until the
// first Connect.
func NewPlaywrightConnector(opts PlaywrightOptions) *PlaywrightConnector {
	if opts.Browser == "" {
		opts.Browser = "chromium"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &PlaywrightConnector{opts: opts}
}

func (c *PlaywrightConnector) driver() (*playwright.Playwright, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pw != nil || c.err != nil {
		return c.pw, c.err
	}

	runOpts := &playwright.RunOptions{SkipInstallBrowsers: true}
	if !c.opts.SkipInstall {
		logging.Debug(browserSubsystem, "Ensuring Playwright driver is installed")
		if err := playwright.Install(runOpts); err != nil {
			c.err = fmt.Errorf("failed to install playwright driver: %w", err)
			return nil, c.err
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		c.err = fmt.Errorf("failed to start playwright driver: %w", err)
		return nil, c.err
	}
	c.pw = pw
	return pw, nil
}

func (c *PlaywrightConnector) browserType(pw *playwright.Playwright) (playwright.BrowserType, error) {
	switch strings.ToLower(c.opts.Browser) {
	case "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unknown browser %q", c.opts.Browser)
	}
}

// Connect opens a new browser connection with a fresh context and page.
func (c *PlaywrightConnector) Connect(ctx context.Context, endpoint string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	pw, err := c.driver()
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	bt, err := c.browserType(pw)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	logging.Debug(browserSubsystem, "Connecting %s to %s", c.opts.Browser, endpoint)
	browser, err := bt.Connect(endpoint, playwright.BrowserTypeConnectOptions{
		Timeout: timeoutMS(ctx, c.opts.Timeout),
	})
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	bctx, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("failed to create browser context: %w", err)}
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("failed to open page: %w", err)}
	}

	return &playwrightSession{browser: browser, context: bctx, page: page, timeout: c.opts.Timeout}, nil
}

// Close stops the local Playwright driver.
func (c *PlaywrightConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pw == nil {
		return nil
	}
	err := c.pw.Stop()
	c.pw = nil
	return err
}

type playwrightSession struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

// Page exposes the Playwright page for tests that need more than the Client
// offers: `s.(interface{ Page() playwright.Page })`.
func (s *playwrightSession) Page() playwright.Page {
	return s.page
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutMS(ctx, s.timeout),
	})
	return err
}

func (s *playwrightSession) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := s.page.Locator(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: timeoutMS(ctx, s.timeout),
	})
	if err != nil {
		return nil, err
	}
	return &playwrightElement{selector: selector, locator: loc}, nil
}

func (s *playwrightSession) ReadText(ctx context.Context, el Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pe, ok := el.(*playwrightElement)
	if !ok {
		return "", fmt.Errorf("element %q does not belong to this session", el.Selector())
	}
	return pe.locator.TextContent(playwright.LocatorTextContentOptions{
		Timeout: timeoutMS(ctx, s.timeout),
	})
}

func (s *playwrightSession) Close() error {
	return errors.Join(s.context.Close(), s.browser.Close())
}

type playwrightElement struct {
	selector string
	locator  playwright.Locator
}

func (e *playwrightElement) Selector() string { return e.selector }

// Locator returns the Playwright locator behind the element.
func (e *playwrightElement) Locator() playwright.Locator { return e.locator }

// timeoutMS turns the context deadline, or fallback when there is none, into
// the millisecond timeout Playwright expects.
func timeoutMS(ctx context.Context, fallback time.Duration) *float64 {
	d := fallback
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
		if d < time.Millisecond {
			d = time.Millisecond
		}
	}
	return playwright.Float(float64(d.Milliseconds()))
}
