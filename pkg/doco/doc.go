// Package doco is the entry point of an end-to-end suite.
//
// A suite is an ordinary Go program. It declares its topology, registers its
// tests and hands control to Main:
//
//	func main() {
//		server, _ := topology.NewServer().
//			Image("hello").Tag("latest").Port(8080).
//			WaitFor(topology.LogLine("listening")).
//			Build()
//		topo, _ := topology.New().Server(server).Build()
//
//		registry.MustRegister("checks_home_page", func(ctx context.Context, c *browser.Client) error {
//			if err := c.Goto(ctx, "/"); err != nil {
//				return err
//			}
//			body, err := c.Text(ctx, "body")
//			...
//		})
//
//		doco.Main(topo)
//	}
//
// Every test gets a freshly started set of containers, and a single browser
// automation container is shared by the whole run. Tests must be registered
// before Main is called; the registry is frozen when the suite starts.
//
// Main parses --run, --fail-fast, --timeout, --verbose, --debug, --report and
// --config, runs the suite and exits with status 1 when a test failed. Run is
// the same thing without flag parsing or os.Exit.
package doco
