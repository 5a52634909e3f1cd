package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doco/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configSubsystem = "Config"
	userConfigDir   = ".config/doco"
	configName      = "doco"
	envPrefix       = "DOCO"
)

// Load builds Settings from, in increasing precedence: defaults, a config
// file, a .env file in the working directory and DOCO_* environment variables
// (DOCO_DRIVER_IMAGE, DOCO_PROBE_ATTEMPTS, ...).
//
// With an empty path, doco.yaml is looked up in the working directory and
// then in ~/.config/doco; a missing file is not an error. An explicit path
// must exist.
func Load(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, userConfigDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, &ConfigurationError{
				FilePath:  path,
				ErrorType: "io",
				Message:   "failed to read configuration",
				Details:   err.Error(),
			}
		}
		logging.Debug(configSubsystem, "No doco.yaml found, using defaults")
	} else {
		logging.Info(configSubsystem, "Loaded configuration from %s", v.ConfigFileUsed())
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, &ConfigurationError{
			FilePath:  v.ConfigFileUsed(),
			ErrorType: "parse",
			Message:   "failed to decode configuration",
			Details:   err.Error(),
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, &ConfigurationError{
			FilePath:  v.ConfigFileUsed(),
			ErrorType: "validation",
			Message:   err.Error(),
			Suggestions: []string{
				"check doco.yaml and DOCO_* environment variables",
			},
		}
	}
	return s, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the config file.
func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("runtime", d.Runtime)
	v.SetDefault("driver.image", d.Driver.Image)
	v.SetDefault("driver.tag", d.Driver.Tag)
	v.SetDefault("driver.port", d.Driver.Port)
	v.SetDefault("driver.command", d.Driver.Command)
	v.SetDefault("driver.readyLog", d.Driver.ReadyLog)
	v.SetDefault("driver.browser", d.Driver.Browser)
	v.SetDefault("timeouts.startup", d.Timeouts.Startup)
	v.SetDefault("timeouts.test", d.Timeouts.Test)
	v.SetDefault("timeouts.teardown", d.Timeouts.Teardown)
	v.SetDefault("timeouts.browser", d.Timeouts.Browser)
	v.SetDefault("probe.attempts", d.Probe.Attempts)
	v.SetDefault("probe.interval", d.Probe.Interval)
	v.SetDefault("network.hostAlias", d.Network.HostAlias)
	v.SetDefault("network.appAlias", d.Network.AppAlias)
}
