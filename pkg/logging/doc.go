// Package logging provides the structured logging used across doco.
//
// It is a thin layer over log/slog that tags every record with a subsystem
// name, so output from the container driver, the orchestrator and the browser
// adapter can be told apart when a suite misbehaves.
//
// # Log Levels
//   - **Debug**: container ids, resolved endpoints, probe attempts
//   - **Info**: lifecycle milestones (driver ready, test environment up)
//   - **Warn**: teardown problems and other non-fatal failures
//   - **Error**: failures that end a test or the whole run
//
// # Usage
//
//	logging.InitForCLI(logging.LevelForFlags(debug, verbose), os.Stderr)
//
//	logging.Info("Orchestrator", "Starting automation driver %s", image)
//	logging.Debug("Docker", "Container %s mapped %d -> %s", id, port, hostPort)
//	logging.WarnErr("Orchestrator", err, "Failed to stop container %s", id)
//	logging.Error("Browser", err, "Could not connect to %s", endpoint)
//
// # Subsystems
//
//   - **Docker**: container driver and janitor
//   - **Orchestrator**: environment lifecycle
//   - **Browser**: driver-client sessions
//   - **Registry**: test registration
//   - **Suite**: the test suite entry point
//   - **Builder**: image builds from git
//   - **Config**: settings loading
//
// Before InitForCLI is called only warnings and errors are written, to
// stderr, so libraries embedding doco stay quiet by default.
package logging
