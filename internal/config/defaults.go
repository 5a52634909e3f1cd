package config

import (
	"strconv"
	"time"
)

const (
	// DefaultDriverImage is a Playwright image that can run `playwright run-server`.
	DefaultDriverImage = "mcr.microsoft.com/playwright"
	// DefaultDriverTag matches the Playwright version the Go client speaks.
	DefaultDriverTag = "v1.52.0-noble"
	// DefaultDriverPort is the websocket port of the Playwright server.
	DefaultDriverPort = 3000
	// DefaultPlaywrightVersion is the run-server version started in the driver.
	DefaultPlaywrightVersion = "1.52.0"
	// DefaultHostAlias is the host gateway name Docker Desktop also uses.
	DefaultHostAlias = "host.docker.internal"
	// DefaultAppAlias is the name services use for the application.
	DefaultAppAlias = "doco"
)

// DefaultSettings returns the configuration used when nothing overrides it.
func DefaultSettings() Settings {
	return Settings{
		Runtime: "docker",
		Driver: DriverSettings{
			Image:    DefaultDriverImage,
			Tag:      DefaultDriverTag,
			Port:     DefaultDriverPort,
			ReadyLog: "Listening on ws://",
			Browser:  "chromium",
		},
		Timeouts: TimeoutSettings{
			Startup:  2 * time.Minute,
			Test:     2 * time.Minute,
			Teardown: 30 * time.Second,
			Browser:  30 * time.Second,
		},
		Probe: ProbeSettings{
			Attempts: 10,
			Interval: time.Second,
		},
		Network: NetworkSettings{
			HostAlias: DefaultHostAlias,
			AppAlias:  DefaultAppAlias,
		},
	}
}

// ServerCommand returns Command, or when it is empty, the run-server command
// listening on Port.
func (d DriverSettings) ServerCommand() []string {
	if len(d.Command) > 0 {
		return d.Command
	}
	return []string{
		"npx", "-y", "playwright@" + DefaultPlaywrightVersion, "run-server",
		"--port", strconv.Itoa(int(d.Port)), "--host", "0.0.0.0",
	}
}
