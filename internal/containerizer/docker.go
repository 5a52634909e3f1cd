package containerizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"doco/pkg/logging"
	"doco/pkg/topology"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const dockerSubsystem = "Docker"

// DockerOptions tunes the Docker driver.
type DockerOptions struct {
	// RunID is stamped on every container as the dev.doco.run label.
	RunID string
	// StartupTimeout bounds image pull, start and readiness.
	StartupTimeout time.Duration
	// ProbeInterval is the pause between custom readiness probe attempts.
	ProbeInterval time.Duration
}

// DockerDriver implements ContainerDriver on top of testcontainers-go.
type DockerDriver struct {
	opts DockerOptions
}

// NewDockerDriver creates a Docker driver. The Docker host is taken from the
// environment (DOCKER_HOST, docker context) the same way the docker CLI does.
func NewDockerDriver(opts DockerOptions) *DockerDriver {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 2 * time.Minute
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 250 * time.Millisecond
	}
	return &DockerDriver{opts: opts}
}

// Start starts a container and waits for its readiness condition.
func (d *DockerDriver) Start(ctx context.Context, spec ContainerSpec) (*Handle, error) {
	ref := spec.Reference()
	req := d.request(spec)

	logging.Info(dockerSubsystem, "Starting container %s", ref)
	if spec.Readiness != nil {
		logging.Debug(dockerSubsystem, "Waiting for %s: %s", ref, spec.Readiness.Describe())
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		// A container that started but never became ready is still returned.
		if c != nil {
			if termErr := c.Terminate(context.Background()); termErr != nil {
				logging.WarnErr(dockerSubsystem, termErr, "Failed to remove unready container %s", ref)
			}
		}
		return nil, &ProvisionError{Reference: ref, Stage: "start", Err: err}
	}

	h := NewHandle(c.GetContainerID(), ref, c)
	logging.Info(dockerSubsystem, "Container %s started with ID: %s", ref, h.ShortID())
	return h, nil
}

func (d *DockerDriver) request(spec ContainerSpec) testcontainers.ContainerRequest {
	env := make(map[string]string, len(spec.Env))
	for _, v := range spec.Env {
		env[v.Name] = v.Value
	}

	labels := map[string]string{LabelManaged: "true"}
	if d.opts.RunID != "" {
		labels[LabelRun] = d.opts.RunID
	}
	for k, v := range spec.Labels {
		labels[k] = v
	}

	hosts := make([]string, 0, len(spec.HostAliases))
	for _, a := range DedupeAliases(spec.HostAliases) {
		hosts = append(hosts, a.String())
	}

	req := testcontainers.ContainerRequest{
		Name:   spec.Name,
		Image:  spec.Reference(),
		Env:    env,
		Cmd:    spec.Cmd,
		Labels: labels,
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.ExtraHosts = append(hc.ExtraHosts, hosts...)
		},
		WaitingFor: d.strategy(spec),
	}
	if spec.ExposedPort != 0 {
		req.ExposedPorts = []string{string(tcpPort(spec.ExposedPort))}
	}
	return req
}

// strategy maps a readiness condition onto a testcontainers wait strategy.
func (d *DockerDriver) strategy(spec ContainerSpec) wait.Strategy {
	switch cond := spec.Readiness.(type) {
	case nil:
		return nil
	case topology.LogLineCondition:
		s := wait.ForLog(cond.Text).WithStartupTimeout(d.opts.StartupTimeout)
		if cond.Occurrence > 1 {
			s = s.WithOccurrence(cond.Occurrence)
		}
		return s
	case topology.DelayCondition:
		return &delayStrategy{delay: cond.Duration}
	case topology.ProbeCondition:
		return &probeStrategy{
			cond:     cond,
			port:     spec.ExposedPort,
			timeout:  d.opts.StartupTimeout,
			interval: d.opts.ProbeInterval,
		}
	default:
		logging.Warn(dockerSubsystem, "Unknown readiness condition %T for %s, not waiting", cond, spec.Reference())
		return nil
	}
}

// PublicEndpoint returns the host-side address of a container port.
func (d *DockerDriver) PublicEndpoint(ctx context.Context, h *Handle, port uint16) (Endpoint, error) {
	c, err := native(h)
	if err != nil {
		return Endpoint{}, err
	}

	host, err := c.Host(ctx)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to get host for %s: %w", h.ShortID(), err)
	}
	mapped, err := c.MappedPort(ctx, tcpPort(port))
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to get mapped port %d for %s: %w", port, h.ShortID(), err)
	}

	ep := Endpoint{Host: host, Port: uint16(mapped.Int())}
	logging.Debug(dockerSubsystem, "Container %s port %d is published at %s", h.ShortID(), port, ep)
	return ep, nil
}

// InternalAddress returns the container IP on its bridge network.
func (d *DockerDriver) InternalAddress(ctx context.Context, h *Handle) (string, error) {
	c, err := native(h)
	if err != nil {
		return "", err
	}
	ip, err := c.ContainerIP(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get IP of %s: %w", h.ShortID(), err)
	}
	if ip == "" {
		return "", fmt.Errorf("container %s has no bridge address", h.ShortID())
	}
	return ip, nil
}

// Stop terminates and removes the container.
func (d *DockerDriver) Stop(ctx context.Context, h *Handle) error {
	c, err := native(h)
	if err != nil {
		return err
	}
	logging.Info(dockerSubsystem, "Stopping container %s (%s)", h.ShortID(), h.Reference)
	if err := c.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", h.ShortID(), err)
	}
	return nil
}

func native(h *Handle) (testcontainers.Container, error) {
	if h == nil {
		return nil, errors.New("nil container handle")
	}
	c, ok := h.native.(testcontainers.Container)
	if !ok {
		return nil, fmt.Errorf("container %s was not started by the docker driver", h.ShortID())
	}
	return c, nil
}

func tcpPort(port uint16) nat.Port {
	return nat.Port(fmt.Sprintf("%d/tcp", port))
}

// delayStrategy considers the container ready after a fixed delay.
type delayStrategy struct {
	delay time.Duration
}

func (s *delayStrategy) WaitUntilReady(ctx context.Context, _ wait.StrategyTarget) error {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// probeStrategy polls a user supplied probe until it succeeds.
type probeStrategy struct {
	cond     topology.ProbeCondition
	port     uint16
	timeout  time.Duration
	interval time.Duration
}

func (s *probeStrategy) WaitUntilReady(ctx context.Context, target wait.StrategyTarget) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pt := &probeTarget{target: target, port: s.port}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = s.cond.Check(ctx, pt); lastErr == nil {
			return nil
		}
		logging.Debug(dockerSubsystem, "Readiness %s not yet satisfied: %v", s.cond.Describe(), lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", s.cond.Describe(), ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

// probeTarget adapts a testcontainers strategy target for topology probes.
type probeTarget struct {
	target wait.StrategyTarget
	port   uint16
}

func (p *probeTarget) Host(ctx context.Context) (string, error) {
	return p.target.Host(ctx)
}

func (p *probeTarget) MappedPort(ctx context.Context, port uint16) (uint16, error) {
	mapped, err := p.target.MappedPort(ctx, tcpPort(port))
	if err != nil {
		return 0, err
	}
	return uint16(mapped.Int()), nil
}

func (p *probeTarget) ExposedPort() uint16 {
	return p.port
}

func (p *probeTarget) Logs(ctx context.Context) (string, error) {
	rc, err := p.target.Logs(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), err
}
