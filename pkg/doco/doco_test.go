package doco

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"doco/internal/config"
	"doco/internal/containerizer"
	"doco/internal/orchestrator"
	"doco/pkg/browser"
	"doco/pkg/registry"
	"doco/pkg/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloTopology(t *testing.T) topology.Topology {
	t.Helper()
	server, err := topology.NewServer().
		Image("hello").
		Tag("latest").
		Port(8080).
		WaitFor(topology.LogLine("listening")).
		Build()
	require.NoError(t, err)
	topo, err := topology.New().Server(server).Build()
	require.NoError(t, err)
	return topo
}

func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.Probe.Attempts = 0
	s.Timeouts.Teardown = time.Second
	return &s
}

type harness struct {
	driver *containerizer.FakeDriver
	conn   *browser.FakeConnector
	reg    *registry.Registry
	out    bytes.Buffer
	logs   bytes.Buffer
}

func newHarness() *harness {
	return &harness{
		driver: containerizer.NewFakeDriver(),
		conn:   browser.NewFakeConnector(nil),
		reg:    registry.New(),
	}
}

func (h *harness) options() Options {
	return Options{
		Settings:  testSettings(),
		Registry:  h.reg,
		Driver:    h.driver,
		Connector: h.conn,
		Out:       &h.out,
		LogOut:    &h.logs,
	}
}

func pass(context.Context, *browser.Client) error { return nil }

func fail(context.Context, *browser.Client) error { return errors.New("assertion failed") }

func TestRun_HomePage(t *testing.T) {
	h := newHarness()
	// driver gets port 40001, the application 40002
	h.conn.Pages["http://host.docker.internal:40002/"] = map[string]string{"body": "OK"}
	h.reg.MustRegister("checks_home_page", func(ctx context.Context, c *browser.Client) error {
		if err := c.Goto(ctx, "/"); err != nil {
			return err
		}
		body, err := c.Text(ctx, "body")
		if err != nil {
			return err
		}
		if !strings.Contains(body, "OK") {
			return fmt.Errorf("body %q does not contain OK", body)
		}
		return nil
	})

	summary, err := Run(context.Background(), helloTopology(t), h.options())
	require.NoError(t, err)

	assert.True(t, summary.Succeeded())
	assert.Equal(t, 1, summary.Passed)

	out := h.out.String()
	assert.Contains(t, out, "Running 1 tests...")
	assert.Contains(t, out, "checks_home_page... ok")
	assert.True(t, strings.HasSuffix(out, "Done.\n"))

	assert.Equal(t, 0, h.driver.Running(), "everything is stopped after the run")
}

func TestRun_FailFast(t *testing.T) {
	tests := []struct {
		name     string
		failFast bool
		want     []orchestrator.Status
	}{
		{
			name: "runs everything by default",
			want: []orchestrator.Status{orchestrator.StatusPassed, orchestrator.StatusFailed, orchestrator.StatusPassed},
		},
		{
			name:     "skips the rest after a failure",
			failFast: true,
			want:     []orchestrator.Status{orchestrator.StatusPassed, orchestrator.StatusFailed, orchestrator.StatusSkipped},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.reg.MustRegister("a", pass)
			h.reg.MustRegister("b", fail)
			h.reg.MustRegister("c", pass)

			opts := h.options()
			opts.FailFast = tt.failFast
			summary, err := Run(context.Background(), helloTopology(t), opts)
			require.NoError(t, err)

			var got []orchestrator.Status
			for _, r := range summary.Results {
				got = append(got, r.Status)
			}
			assert.Equal(t, tt.want, got)
			assert.False(t, summary.Succeeded())
			assert.Contains(t, h.out.String(), "b... FAILED")
			assert.Contains(t, h.out.String(), "    test b failed: assertion failed")
		})
	}
}

func TestRun_Filter(t *testing.T) {
	h := newHarness()
	h.reg.MustRegister("checks_home_page", pass)
	h.reg.MustRegister("checks_login", pass)
	h.reg.MustRegister("admin_page", pass)

	opts := h.options()
	opts.Run = "checks_*"
	summary, err := Run(context.Background(), helloTopology(t), opts)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "checks_home_page", summary.Results[0].Name)
	assert.Equal(t, "checks_login", summary.Results[1].Name)
}

func TestRun_InvalidFilter(t *testing.T) {
	h := newHarness()
	opts := h.options()
	opts.Run = "["

	_, err := Run(context.Background(), helloTopology(t), opts)
	require.Error(t, err)
	assert.Equal(t, 0, h.driver.Starts(), "nothing starts with a bad filter")
}

func TestRun_FreezesRegistry(t *testing.T) {
	h := newHarness()
	h.reg.MustRegister("a", pass)

	_, err := Run(context.Background(), helloTopology(t), h.options())
	require.NoError(t, err)

	assert.ErrorIs(t, h.reg.Register("late", pass), registry.ErrFrozen)
}

func TestRun_DriverFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.reg.MustRegister("a", pass)
	h.driver.FailStart[config.DefaultDriverImage] = errors.New("pull denied")

	summary, err := Run(context.Background(), helloTopology(t), h.options())
	require.Error(t, err)
	assert.Nil(t, summary)

	var perr *containerizer.ProvisionError
	assert.ErrorAs(t, err, &perr)
	assert.NotContains(t, h.out.String(), "Running")
}

func TestRun_TimeoutOverride(t *testing.T) {
	h := newHarness()
	h.reg.MustRegister("slow", func(ctx context.Context, _ *browser.Client) error {
		<-ctx.Done()
		return ctx.Err()
	})

	opts := h.options()
	opts.Timeout = 50 * time.Millisecond
	summary, err := Run(context.Background(), helloTopology(t), opts)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, orchestrator.StatusFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, context.DeadlineExceeded)
}

func TestRun_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(o *Options)
		contains string
	}{
		{
			name:     "empty app alias",
			mutate:   func(o *Options) { o.Settings.Network.AppAlias = "" },
			contains: "network.appAlias",
		},
		{
			name:     "zero driver port",
			mutate:   func(o *Options) { o.Settings.Driver.Port = 0 },
			contains: "driver.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.reg.MustRegister("a", pass)
			opts := h.options()
			tt.mutate(&opts)

			_, err := Run(context.Background(), helloTopology(t), opts)

			var cfgErr *config.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, ExitCodeSetup, exitCode(err))
			assert.Equal(t, 0, h.driver.Starts())
		})
	}
}

// stopCancels cancels the run the first time a container is stopped, which
// happens while the first test's environment is torn down.
type stopCancels struct {
	*containerizer.FakeDriver
	once   sync.Once
	cancel context.CancelFunc
}

func (d *stopCancels) Stop(ctx context.Context, h *containerizer.Handle) error {
	d.once.Do(d.cancel)
	return d.FakeDriver.Stop(ctx, h)
}

func TestRun_CancelSkipsRemaining(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, name := range []string{"first", "second", "third"} {
		h.reg.MustRegister(name, pass)
	}
	opts := h.options()
	opts.Driver = &stopCancels{FakeDriver: h.driver, cancel: cancel}

	summary, err := Run(ctx, helloTopology(t), opts)
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, orchestrator.StatusPassed, summary.Results[0].Status)
	assert.Equal(t, orchestrator.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, orchestrator.StatusSkipped, summary.Results[2].Status)
	assert.True(t, summary.Interrupted)
	assert.False(t, summary.Succeeded())
	assert.Equal(t, 0, h.driver.Running())
	assert.Contains(t, h.out.String(), "Run interrupted")
}

func TestCommand_InterruptedRunFails(t *testing.T) {
	t.Setenv("DOCO_PROBE_ATTEMPTS", "0")
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.reg.MustRegister("first", pass)
	h.reg.MustRegister("second", pass)

	cmd := NewCommand(helloTopology(t),
		WithRegistry(h.reg),
		WithDriver(&stopCancels{FakeDriver: h.driver, cancel: cancel}),
		WithConnector(h.conn),
		WithOutput(&h.out, &h.logs),
	)
	cmd.SetArgs(nil)
	err := cmd.ExecuteContext(ctx)

	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, ExitCodeFailed, exitCode(err))
}

func TestCommand_ExitCodes(t *testing.T) {
	t.Setenv("DOCO_PROBE_ATTEMPTS", "0")

	tests := []struct {
		name  string
		tests map[string]registry.TestFunc
		args  []string
		want  int
	}{
		{"all pass", map[string]registry.TestFunc{"a": pass}, nil, ExitCodeSuccess},
		{"a failure", map[string]registry.TestFunc{"a": pass, "b": fail}, nil, ExitCodeFailed},
		{"filtered out failure", map[string]registry.TestFunc{"a": pass, "b": fail}, []string{"--run", "a"}, ExitCodeSuccess},
		{"unknown flag", map[string]registry.TestFunc{"a": pass}, []string{"--nope"}, ExitCodeSetup},
		{"stray argument", map[string]registry.TestFunc{"a": pass}, []string{"extra"}, ExitCodeSetup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			for name, fn := range tt.tests {
				h.reg.MustRegister(name, fn)
			}

			code := run(helloTopology(t), tt.args,
				WithRegistry(h.reg),
				WithDriver(h.driver),
				WithConnector(h.conn),
				WithOutput(&h.out, &h.logs),
			)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestNewCommand_Flags(t *testing.T) {
	cmd := NewCommand(helloTopology(t))

	for _, name := range []string{"run", "fail-fast", "timeout", "verbose", "debug", "report", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag --%s", name)
	}
}
