package doco

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"doco/internal/containerizer"
	"doco/pkg/browser"
	"doco/pkg/registry"
	"doco/pkg/topology"

	"github.com/spf13/cobra"
)

// Exit codes of a suite binary.
const (
	// ExitCodeSuccess means every selected test passed.
	ExitCodeSuccess = 0
	// ExitCodeFailed means at least one test failed or errored, or the run
	// was interrupted.
	ExitCodeFailed = 1
	// ExitCodeSetup means the suite could not run: bad flags or settings, or
	// the automation driver never came up.
	ExitCodeSetup = 2
)

var (
	// ErrTestsFailed is returned by the suite command when a test did not pass.
	ErrTestsFailed = errors.New("some tests failed")
	// ErrInterrupted is returned when the run was cancelled before it finished.
	ErrInterrupted = errors.New("run interrupted")
)

// Option adjusts the defaults Main runs with. Flags override them.
type Option func(*Options)

// WithRegistry runs the tests of reg instead of the default registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *Options) { o.Registry = reg }
}

// WithDriver replaces the container driver.
func WithDriver(d containerizer.ContainerDriver) Option {
	return func(o *Options) { o.Driver = d }
}

// WithConnector replaces the browser connector.
func WithConnector(c browser.Connector) Option {
	return func(o *Options) { o.Connector = c }
}

// WithOutput redirects progress and log output.
func WithOutput(out, logOut io.Writer) Option {
	return func(o *Options) {
		o.Out = out
		o.LogOut = logOut
	}
}

// NewCommand returns the cobra command Main executes. It is exported so a
// suite can add its own flags or subcommands.
func NewCommand(topo topology.Topology, options ...Option) *cobra.Command {
	var opts Options
	for _, opt := range options {
		opt(&opts)
	}

	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Run the end-to-end tests of this suite",
		Long: `Runs every registered test against a freshly started set of containers.

A single browser automation container is shared by all tests. The run fails
if any test fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = orDefault(opts.Out, cmd.OutOrStdout())
			opts.LogOut = orDefault(opts.LogOut, cmd.ErrOrStderr())

			summary, err := Run(cmd.Context(), topo, opts)
			if err != nil {
				return err
			}
			if summary.Interrupted {
				return ErrInterrupted
			}
			if !summary.Succeeded() {
				return ErrTestsFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Run, "run", "", "Run only tests whose name matches this glob pattern")
	f.BoolVar(&opts.FailFast, "fail-fast", false, "Skip the remaining tests after the first failure")
	f.DurationVar(&opts.Timeout, "timeout", 0, "Timeout per test (default from settings, 2m)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose output")
	f.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	f.StringVar(&opts.ReportPath, "report", "", "Write a JSON report to this file")
	f.StringVar(&opts.ConfigPath, "config", "", "Settings file (default doco.yaml or ~/.config/doco/doco.yaml)")

	return cmd
}

// Main runs the suite with the command line of the process and exits.
// SIGINT and SIGTERM cancel the run; environments already started are still
// torn down.
func Main(topo topology.Topology, options ...Option) {
	os.Exit(run(topo, os.Args[1:], options...))
}

func run(topo topology.Topology, args []string, options ...Option) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping tests gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd := NewCommand(topo, options...)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrTestsFailed) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, ErrTestsFailed), errors.Is(err, ErrInterrupted):
		return ExitCodeFailed
	default:
		return ExitCodeSetup
	}
}

func orDefault(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
