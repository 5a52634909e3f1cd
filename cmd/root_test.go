package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"doco/internal/config"
	"doco/pkg/topology"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "doco", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"debug", "verbose", "config"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{Use: "test", Version: "1.0.0"}
	testCmd.SetVersionTemplate(`{{printf "doco version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})

	require.NoError(t, testCmd.Execute())
	assert.Equal(t, "doco version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}

	for _, name := range []string{"version", "self-update", "cleanup", "check", "build"} {
		assert.True(t, found[name], "subcommand %s should be registered", name)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), ExitCodeError},
		{
			name: "topology validation",
			err:  fmt.Errorf("topology.yaml: %w", &topology.ValidationError{Entity: "server", Field: "image", Reason: "is required"}),
			want: ExitCodeInvalidInput,
		},
		{
			name: "settings",
			err:  &config.ConfigurationError{ErrorType: "validation", Message: "invalid settings"},
			want: ExitCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &config.ConfigurationError{
		ErrorType:   "parse",
		Message:     "failed to read configuration",
		Suggestions: []string{"Check the YAML syntax"},
	}

	msg := errorMessage(fmt.Errorf("loading: %w", err))
	assert.Contains(t, msg, "failed to read configuration")
	assert.Contains(t, msg, "- Check the YAML syntax")

	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}
