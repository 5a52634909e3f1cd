// Package config loads the harness settings for doco.
//
// Settings cover how a run behaves: which automation driver image to start,
// timeouts, the liveness probe budget and the aliases injected into
// containers. They never describe the topology under test.
//
// Sources, lowest precedence first:
//   - DefaultSettings
//   - doco.yaml in the working directory, else ~/.config/doco/doco.yaml
//     (or the file given with --config)
//   - a .env file in the working directory
//   - DOCO_* environment variables, with dots replaced by underscores
//
// Example doco.yaml:
//
//	driver:
//	  browser: firefox
//	timeouts:
//	  test: 5m
//	probe:
//	  attempts: 20
//	  interval: 500ms
package config
