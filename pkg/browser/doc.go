// Package browser is the driver-client side of doco: it opens sessions on the
// shared automation driver and hands tests a Client bound to the application
// under test.
//
// Test bodies only ever see a *Client:
//
//	func checksHomePage(ctx context.Context, c *browser.Client) error {
//		if err := c.Goto(ctx, "/"); err != nil {
//			return err
//		}
//		body, err := c.Text(ctx, "body")
//		if err != nil {
//			return err
//		}
//		if !strings.Contains(body, "OK") {
//			return fmt.Errorf("unexpected body %q", body)
//		}
//		return nil
//	}
//
// Paths passed to Goto are resolved against the application's address as
// seen from inside the driver container, so tests never deal with mapped
// ports or container networking.
//
// PlaywrightConnector talks to a remote Playwright server; FakeConnector is an
// in-memory stand-in for tests.
package browser
