package cmd

import (
	"errors"
	"fmt"
	"os"

	"doco/internal/config"
	"doco/pkg/logging"
	"doco/pkg/topology"

	"github.com/docker/docker/client"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, check did not pass).
	ExitCodeError = 1
	// ExitCodeInvalidInput indicates a rejected topology file or settings file.
	ExitCodeInvalidInput = 2
	// ExitCodeDockerUnavailable indicates the Docker daemon could not be reached.
	ExitCodeDockerUnavailable = 3
)

var (
	rootDebug      bool
	rootVerbose    bool
	rootConfigPath string
)

// rootCmd represents the base command for the doco application.
var rootCmd = &cobra.Command{
	Use:   "doco",
	Short: "Run browser tests against throwaway containers",
	Long: `doco starts an application and its backing services in fresh containers
for every test and drives a shared headless browser against it.

Suites are Go programs built on the doco packages. This binary holds the
tooling around them: checking a topology file, building images from git and
removing containers left behind by interrupted runs.`,
	// Errors are printed by Execute.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.LevelForFlags(rootDebug, rootVerbose), cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "doco version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validation *topology.ValidationError
	if errors.As(err, &validation) {
		return ExitCodeInvalidInput
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeInvalidInput
	}

	if client.IsErrConnectionFailed(err) {
		return ExitCodeDockerUnavailable
	}

	return ExitCodeError
}

// errorMessage includes details and suggestions for configuration errors.
func errorMessage(err error) string {
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.DetailedError()
	}
	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Settings file (default doco.yaml or ~/.config/doco/doco.yaml)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(buildCmd)
}
