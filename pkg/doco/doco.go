package doco

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"doco/internal/config"
	"doco/internal/containerizer"
	"doco/internal/orchestrator"
	"doco/internal/reporter"
	"doco/pkg/browser"
	"doco/pkg/logging"
	"doco/pkg/registry"
	"doco/pkg/topology"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
)

const suiteSubsystem = "Suite"

// Summary aggregates the results of a run.
type Summary = orchestrator.Summary

// Result is the outcome of one test.
type Result = orchestrator.Result

// Options controls a suite run.
type Options struct {
	// Run restricts the suite to tests whose name matches this glob.
	Run string
	// FailFast skips the remaining tests after the first failure.
	FailFast bool
	// Timeout overrides the per-test timeout from the settings.
	Timeout time.Duration

	Verbose bool
	Debug   bool

	// ReportPath, when set, receives a JSON report.
	ReportPath string
	// ConfigPath points at a settings file; empty means the default lookup.
	ConfigPath string

	// Settings, when set, is used instead of loading ConfigPath.
	Settings *config.Settings
	// Registry defaults to registry.Default().
	Registry *registry.Registry
	// Driver defaults to the container runtime named in the settings.
	Driver containerizer.ContainerDriver
	// Connector defaults to a Playwright connector.
	Connector browser.Connector
	// Out receives progress and the summary. Defaults to os.Stdout.
	Out io.Writer
	// LogOut receives log records. Defaults to os.Stderr.
	LogOut io.Writer
}

// Run executes the suite for topo and returns its summary. The error is
// non-nil only when the run could not start at all (bad settings, a bad
// filter, or a driver that never came up); failing tests are reported in the
// summary.
func Run(ctx context.Context, topo topology.Topology, opts Options) (*Summary, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logOut := opts.LogOut
	if logOut == nil {
		logOut = os.Stderr
	}
	logging.InitForCLI(logging.LevelForFlags(opts.Debug, opts.Verbose), logOut)

	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	reg.Freeze()
	entries, err := reg.Filter(opts.Run)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logging.Info(suiteSubsystem, "Run %s: %d of %d registered test(s) selected", runID, len(entries), reg.Len())

	driver := opts.Driver
	if driver == nil {
		driver, err = containerizer.NewContainerDriver(settings.Runtime, containerizer.DockerOptions{
			RunID:          runID,
			StartupTimeout: settings.Timeouts.Startup,
		})
		if err != nil {
			return nil, err
		}
	}
	connector := opts.Connector
	if connector == nil {
		connector = browser.NewPlaywrightConnector(browser.PlaywrightOptions{
			Browser: settings.Driver.Browser,
			Timeout: settings.Timeouts.Browser,
		})
	}

	orch := orchestrator.New(topo, driver, connector, orchestrator.WithSettings(settings))
	defer orch.Shutdown()

	if err := initDriver(ctx, orch, out); err != nil {
		return nil, fmt.Errorf("failed to start the automation driver: %w", err)
	}

	rep := reporter.New(out, reporter.Options{
		Verbose:    opts.Verbose,
		Debug:      opts.Debug,
		ReportPath: opts.ReportPath,
		NoColor:    !isTerminal(out),
	})

	summary := runEntries(ctx, orch, entries, opts.FailFast, rep)

	orch.Shutdown()
	rep.ReportSuiteResult(summary)
	return summary, nil
}

func loadSettings(opts Options) (config.Settings, error) {
	var settings config.Settings
	if opts.Settings != nil {
		settings = *opts.Settings
	} else {
		var err error
		if settings, err = config.Load(opts.ConfigPath); err != nil {
			return config.Settings{}, err
		}
	}
	if opts.Timeout > 0 {
		settings.Timeouts.Test = opts.Timeout
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, &config.ConfigurationError{
			FilePath:  opts.ConfigPath,
			ErrorType: "validation",
			Message:   err.Error(),
		}
	}
	return settings, nil
}

// initDriver starts the shared driver, showing a spinner when the suite
// writes to an interactive stdout.
func initDriver(ctx context.Context, orch *orchestrator.Orchestrator, out io.Writer) error {
	if out != io.Writer(os.Stdout) || !isTerminal(out) {
		return orch.Init(ctx)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Starting automation driver..."
	s.Start()
	defer s.Stop()

	return orch.Init(ctx)
}

func runEntries(ctx context.Context, orch *orchestrator.Orchestrator, entries []registry.Entry, failFast bool, rep reporter.Reporter) *Summary {
	summary := orchestrator.NewSummary()
	rep.ReportStart(len(entries))

	stopped := false
	for _, e := range entries {
		if stopped || ctx.Err() != nil {
			res := Result{Name: e.Name, Status: orchestrator.StatusSkipped}
			rep.ReportTestResult(res)
			summary.Add(res)
			continue
		}

		rep.ReportTestStart(e.Name)
		res := orch.Run(ctx, e)
		rep.ReportTestResult(res)
		summary.Add(res)

		if failFast && !res.Passed() {
			logging.Info(suiteSubsystem, "Stopping after %s failed", e.Name)
			stopped = true
		}
	}

	if ctx.Err() != nil {
		logging.Warn(suiteSubsystem, "Run cancelled: %v", ctx.Err())
		summary.Interrupted = true
	}
	summary.Finish()
	return summary
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
