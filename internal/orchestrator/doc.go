// Package orchestrator provisions and tears down the container environment
// each doco test runs in.
//
// # Lifecycle
//
// An Orchestrator moves through these states:
//
//	Uninitialized -> DriverReady -> { Provisioning -> Ready -> Executing -> TearingDown -> Idle }* -> Shutdown
//
// Init starts the shared browser automation driver once. Run then handles
// one test at a time:
//
//  1. start the topology's services in order, each able to reach the
//     application through the host gateway
//  2. map every service's image name to its bridge address
//  3. start the application with those aliases
//  4. resolve the application's public endpoint and the address the driver
//     container uses to reach it
//  5. run a best-effort liveness probe against the public endpoint
//  6. connect a browser session to the shared driver
//  7. execute the test body in an isolation shell
//  8. tear everything down, whatever happened before
//
// Provisioning and connection failures only fail the current test. Only a
// failed Init is fatal to the run.
//
// # Concurrency
//
// Run calls are serialized. Nothing created for one test is visible to the
// next: every test gets new containers and a new browser session, and the
// shared driver is only ever used as a connection target.
package orchestrator
