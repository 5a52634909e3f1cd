package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"doco/internal/config"
	"doco/internal/containerizer"
	"doco/internal/isolation"
	"doco/pkg/browser"
	"doco/pkg/logging"
	"doco/pkg/registry"
	"doco/pkg/topology"

	"golang.org/x/sync/errgroup"
)

const orchestratorSubsystem = "Orchestrator"

// Container roles, stored in the dev.doco.role label.
const (
	roleDriver  = "driver"
	roleServer  = "server"
	roleService = "service"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSettings replaces the default settings.
func WithSettings(s config.Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// WithProber replaces the HTTP liveness prober.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithShell replaces the isolation shell built from the settings.
func WithShell(s *isolation.Shell) Option {
	return func(o *Orchestrator) { o.shell = s }
}

// WithStateHook registers a function called on every state change.
func WithStateHook(fn func(State)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// Orchestrator owns the shared automation driver and provisions one
// environment per test.
type Orchestrator struct {
	topology  topology.Topology
	driver    containerizer.ContainerDriver
	connector browser.Connector
	settings  config.Settings
	prober    Prober
	shell     *isolation.Shell
	onState   func(State)

	// runMu serializes Init, Run and Shutdown.
	runMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	shared    *containerizer.Handle
	driverURL string
}

// New creates an orchestrator for topo. Nothing is started until Init.
func New(topo topology.Topology, driver containerizer.ContainerDriver, connector browser.Connector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		topology:  topo,
		driver:    driver,
		connector: connector,
		settings:  config.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prober == nil {
		o.prober = HTTPProber{Attempts: o.settings.Probe.Attempts, Interval: o.settings.Probe.Interval}
	}
	if o.shell == nil {
		o.shell = &isolation.Shell{Timeout: o.settings.Timeouts.Test, Grace: 5 * time.Second}
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()

	logging.Debug(orchestratorSubsystem, "State -> %s", s)
	if o.onState != nil {
		o.onState(s)
	}
}

// DriverEndpoint returns the websocket endpoint of the shared driver once
// Init has succeeded.
func (o *Orchestrator) DriverEndpoint() string {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.driverURL
}

func (o *Orchestrator) hostGateway() containerizer.HostAlias {
	return containerizer.HostAlias{Name: o.settings.Network.HostAlias, Address: containerizer.HostGateway}
}

// Init starts the shared automation driver. On failure the driver is
// stopped, if it got that far, and the error is returned; the run cannot
// continue.
func (o *Orchestrator) Init(ctx context.Context) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if s := o.State(); s != StateUninitialized {
		return fmt.Errorf("cannot initialize orchestrator in state %s", s)
	}

	d := o.settings.Driver
	spec := containerizer.ContainerSpec{
		Image:       d.Image,
		Tag:         d.Tag,
		ExposedPort: d.Port,
		Cmd:         d.ServerCommand(),
		HostAliases: []containerizer.HostAlias{o.hostGateway()},
		Labels:      map[string]string{containerizer.LabelRole: roleDriver},
	}
	if d.ReadyLog != "" {
		spec.Readiness = topology.LogLine(d.ReadyLog)
	}

	logging.Info(orchestratorSubsystem, "Starting automation driver %s", spec.Reference())
	h, err := o.driver.Start(ctx, spec)
	if err != nil {
		return err
	}

	ep, err := o.driver.PublicEndpoint(ctx, h, d.Port)
	if err != nil {
		o.stop(h, "automation driver")
		return &containerizer.ProvisionError{Reference: spec.Reference(), Stage: "endpoint", Err: err}
	}

	o.shared = h
	o.driverURL = ep.URL("ws")
	logging.Info(orchestratorSubsystem, "Automation driver ready at %s", o.driverURL)
	o.setState(StateDriverReady)
	return nil
}

// environment is the per-test state. It is owned by a single Run call.
type environment struct {
	test     string
	services []*containerizer.Handle
	server   *containerizer.Handle
	session  browser.Session

	publicURL string // reachable from the test process
	baseURL   string // reachable from the driver container
}

// Run provisions a fresh environment, executes entry in it and tears the
// environment down again. Problems are reported in the Result; Run itself
// never fails.
func (o *Orchestrator) Run(ctx context.Context, entry registry.Entry) (res Result) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	res = Result{Name: entry.Name}
	if s := o.State(); !s.canRun() {
		res.Status = StatusError
		res.Err = fmt.Errorf("cannot run %s in state %s", entry.Name, s)
		return res
	}

	start := time.Now()
	env := &environment{test: entry.Name}
	defer func() {
		o.setState(StateTearingDown)
		res.Warnings = o.teardown(env)
		res.Duration = time.Since(start)
		o.setState(StateIdle)
	}()

	o.setState(StateProvisioning)
	client, err := o.provision(ctx, env)
	if err != nil {
		logging.Error(orchestratorSubsystem, err, "Environment for %s could not be provisioned", entry.Name)
		res.Status = StatusError
		res.Err = err
		return res
	}

	o.setState(StateExecuting)
	err = o.shell.Execute(ctx, entry.Name, func(ctx context.Context) error {
		return entry.Func(ctx, client)
	})
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	res.Status = StatusPassed
	return res
}

func (o *Orchestrator) provision(ctx context.Context, env *environment) (*browser.Client, error) {
	labels := map[string]string{containerizer.LabelTest: env.test}

	// Services first, in declared order. Anything started is recorded in env
	// straight away so teardown sees it even if a later step fails.
	services := o.topology.Services()
	for _, svc := range services {
		h, err := o.driver.Start(ctx, containerizer.ContainerSpec{
			Image:       svc.Image(),
			Tag:         svc.Tag(),
			ExposedPort: svc.Port(),
			Env:         svc.Env(),
			Readiness:   svc.Readiness(),
			HostAliases: []containerizer.HostAlias{
				{Name: o.settings.Network.AppAlias, Address: containerizer.HostGateway},
				o.hostGateway(),
			},
			Labels: withRole(labels, roleService),
		})
		if err != nil {
			return nil, err
		}
		env.services = append(env.services, h)
	}

	aliases, err := o.serviceAliases(ctx, services, env.services)
	if err != nil {
		return nil, err
	}

	server := o.topology.Server()
	h, err := o.driver.Start(ctx, containerizer.ContainerSpec{
		Image:       server.Image(),
		Tag:         server.Tag(),
		ExposedPort: server.Port(),
		Env:         server.Env(),
		Readiness:   server.Readiness(),
		HostAliases: append(aliases, o.hostGateway()),
		Labels:      withRole(labels, roleServer),
	})
	if err != nil {
		return nil, err
	}
	env.server = h

	ep, err := o.driver.PublicEndpoint(ctx, h, server.Port())
	if err != nil {
		return nil, &containerizer.ProvisionError{Reference: server.Reference(), Stage: "endpoint", Err: err}
	}
	env.publicURL = "http://" + ep.String() + "/"
	env.baseURL = "http://" + o.settings.Network.HostAlias + ":" + strconv.Itoa(int(ep.Port))
	o.setState(StateReady)
	logging.Info(orchestratorSubsystem, "Application for %s is up at %s (driver uses %s)", env.test, env.publicURL, env.baseURL)

	// Readiness has already been awaited; this only smooths over apps that
	// log their ready line before accepting connections.
	if err := o.prober.Probe(ctx, env.publicURL); err != nil {
		logging.Warn(orchestratorSubsystem, "Liveness probe for %s gave up, continuing: %v", env.test, err)
	}

	session, err := o.connector.Connect(ctx, o.driverURL)
	if err != nil {
		var cerr *browser.ConnectionError
		if !errors.As(err, &cerr) {
			err = &browser.ConnectionError{Endpoint: o.driverURL, Err: err}
		}
		return nil, err
	}
	env.session = session

	return browser.NewClient(session, env.baseURL)
}

// serviceAliases maps each service's alias to its bridge address. When two
// services share an alias the later one wins.
func (o *Orchestrator) serviceAliases(ctx context.Context, services []topology.Service, handles []*containerizer.Handle) ([]containerizer.HostAlias, error) {
	aliases := make([]containerizer.HostAlias, 0, len(handles))
	for i, h := range handles {
		ip, err := o.driver.InternalAddress(ctx, h)
		if err != nil {
			return nil, &containerizer.ProvisionError{Reference: h.Reference, Stage: "address", Err: err}
		}
		aliases = append(aliases, containerizer.HostAlias{Name: services[i].Alias(), Address: ip})
	}

	deduped := containerizer.DedupeAliases(aliases)
	if len(deduped) != len(aliases) {
		logging.Warn(orchestratorSubsystem, "Several services share an alias, the last one declared wins: %v", o.topology.DuplicateAliases())
	}
	for _, a := range deduped {
		logging.Debug(orchestratorSubsystem, "Alias %s -> %s", a.Name, a.Address)
	}
	return deduped, nil
}

// teardown releases everything env holds. It uses fresh contexts so that a
// cancelled run still cleans up, and never fails: problems come back as
// warnings.
func (o *Orchestrator) teardown(env *environment) []*TeardownWarning {
	var warnings []*TeardownWarning

	if env.session != nil {
		if err := env.session.Close(); err != nil {
			w := &TeardownWarning{Resource: "browser session", Err: err}
			logging.WarnErr(orchestratorSubsystem, err, "Failed to close browser session for %s", env.test)
			warnings = append(warnings, w)
		}
	}

	handles := make([]*containerizer.Handle, 0, len(env.services)+1)
	if env.server != nil {
		handles = append(handles, env.server)
	}
	handles = append(handles, env.services...)

	stopWarnings := make([]*TeardownWarning, len(handles))
	var g errgroup.Group
	for i, h := range handles {
		g.Go(func() error {
			stopWarnings[i] = o.stop(h, env.test)
			return nil
		})
	}
	_ = g.Wait()

	for _, w := range stopWarnings {
		if w != nil {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

// stop stops one container with its own timeout. Failures are logged and
// returned as a warning.
func (o *Orchestrator) stop(h *containerizer.Handle, owner string) *TeardownWarning {
	ctx, cancel := context.WithTimeout(context.Background(), o.settings.Timeouts.Teardown)
	defer cancel()

	if err := o.driver.Stop(ctx, h); err != nil {
		logging.WarnErr(orchestratorSubsystem, err, "Failed to stop %s container %s for %s", h.Reference, h.ShortID(), owner)
		return &TeardownWarning{Resource: h.Reference, Err: err}
	}
	return nil
}

// Shutdown stops the shared driver and releases the browser connector.
// It is safe to call more than once and after a failed Init.
func (o *Orchestrator) Shutdown() {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if o.State() == StateShutdown {
		return
	}

	if o.shared != nil {
		o.stop(o.shared, "automation driver")
		o.shared = nil
	}
	if closer, ok := o.connector.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logging.WarnErr(orchestratorSubsystem, err, "Failed to close browser connector")
		}
	}

	o.setState(StateShutdown)
	logging.Info(orchestratorSubsystem, "Shut down")
}

func withRole(labels map[string]string, role string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[containerizer.LabelRole] = role
	return out
}
