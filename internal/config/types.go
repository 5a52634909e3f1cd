package config

import "time"

// Settings is the harness configuration. It describes how doco runs, never
// what it runs: the topology comes from code or a topology file.
type Settings struct {
	// Runtime selects the container runtime ("docker").
	Runtime  string          `mapstructure:"runtime" yaml:"runtime"`
	Driver   DriverSettings  `mapstructure:"driver" yaml:"driver"`
	Timeouts TimeoutSettings `mapstructure:"timeouts" yaml:"timeouts"`
	Probe    ProbeSettings   `mapstructure:"probe" yaml:"probe"`
	Network  NetworkSettings `mapstructure:"network" yaml:"network"`
}

// DriverSettings describes the shared browser automation container.
type DriverSettings struct {
	Image    string   `mapstructure:"image" yaml:"image"`
	Tag      string   `mapstructure:"tag" yaml:"tag"`
	Port     uint16   `mapstructure:"port" yaml:"port"`         // Control port inside the container
	Command  []string `mapstructure:"command" yaml:"command"`   // Replaces the run-server command built from Port
	ReadyLog string   `mapstructure:"readyLog" yaml:"readyLog"` // Log line that marks the driver ready
	Browser  string   `mapstructure:"browser" yaml:"browser"`   // chromium, firefox or webkit
}

// TimeoutSettings bounds the blocking steps of a run.
type TimeoutSettings struct {
	Startup  time.Duration `mapstructure:"startup" yaml:"startup"`   // Pull, start and readiness of one container
	Test     time.Duration `mapstructure:"test" yaml:"test"`         // One test body
	Teardown time.Duration `mapstructure:"teardown" yaml:"teardown"` // Stopping one container
	Browser  time.Duration `mapstructure:"browser" yaml:"browser"`   // Browser calls without a context deadline
}

// ProbeSettings controls the liveness probe run before each test.
type ProbeSettings struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// NetworkSettings names the aliases injected into containers.
type NetworkSettings struct {
	// HostAlias resolves to the Docker host inside every container.
	HostAlias string `mapstructure:"hostAlias" yaml:"hostAlias"`
	// AppAlias is the name services use to call back to the application.
	AppAlias string `mapstructure:"appAlias" yaml:"appAlias"`
}
