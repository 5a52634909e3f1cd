package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks the settings for values doco cannot work with.
func (s Settings) Validate() error {
	var errs ValidationErrors

	if s.Driver.Image == "" {
		errs.Add("driver.image", "is required", s.Driver.Image)
	}
	if s.Driver.Tag == "" {
		errs.Add("driver.tag", "is required", s.Driver.Tag)
	}
	if s.Driver.Port == 0 {
		errs.Add("driver.port", "must be between 1 and 65535", s.Driver.Port)
	}
	switch strings.ToLower(s.Driver.Browser) {
	case "chromium", "chrome", "firefox", "webkit":
	default:
		errs.Add("driver.browser", "must be chromium, firefox or webkit", s.Driver.Browser)
	}
	if s.Timeouts.Startup <= 0 {
		errs.Add("timeouts.startup", "must be positive", s.Timeouts.Startup)
	}
	if s.Timeouts.Teardown <= 0 {
		errs.Add("timeouts.teardown", "must be positive", s.Timeouts.Teardown)
	}
	if s.Timeouts.Test < 0 {
		errs.Add("timeouts.test", "must not be negative", s.Timeouts.Test)
	}
	if s.Probe.Attempts < 0 {
		errs.Add("probe.attempts", "must not be negative", s.Probe.Attempts)
	}
	if s.Probe.Attempts > 0 && s.Probe.Interval <= 0 {
		errs.Add("probe.interval", "must be positive when probing is enabled", s.Probe.Interval)
	}
	if s.Network.HostAlias == "" {
		errs.Add("network.hostAlias", "is required", s.Network.HostAlias)
	}
	if s.Network.AppAlias == "" {
		errs.Add("network.appAlias", "is required", s.Network.AppAlias)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
