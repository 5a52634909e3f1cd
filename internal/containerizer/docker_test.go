package containerizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"doco/pkg/topology"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestDockerDriver_Request(t *testing.T) {
	d := NewDockerDriver(DockerOptions{RunID: "run-1"})

	req := d.request(ContainerSpec{
		Image:       "app",
		Tag:         "v1",
		ExposedPort: 3000,
		Env: []topology.Variable{
			{Name: "MODE", Value: "dev"},
			{Name: "MODE", Value: "test"},
			{Name: "PORT", Value: "3000"},
		},
		HostAliases: []HostAlias{
			{Name: "postgres", Address: "172.17.0.2"},
			{Name: "host.docker.internal", Address: HostGateway},
			{Name: "postgres", Address: "172.17.0.5"},
		},
		Labels: map[string]string{LabelRole: "server"},
	})

	assert.Equal(t, "app:v1", req.Image)
	assert.Equal(t, []string{"3000/tcp"}, req.ExposedPorts)
	assert.Equal(t, map[string]string{"MODE": "test", "PORT": "3000"}, req.Env)
	assert.Equal(t, map[string]string{
		LabelManaged: "true",
		LabelRun:     "run-1",
		LabelRole:    "server",
	}, req.Labels)
	assert.Nil(t, req.WaitingFor)

	require.NotNil(t, req.HostConfigModifier)
	hc := &container.HostConfig{}
	req.HostConfigModifier(hc)
	assert.Equal(t, []string{"postgres:172.17.0.5", "host.docker.internal:host-gateway"}, hc.ExtraHosts)
}

func TestDockerDriver_RequestWithoutPort(t *testing.T) {
	d := NewDockerDriver(DockerOptions{})
	req := d.request(ContainerSpec{Image: "worker", Tag: "1"})

	assert.Empty(t, req.ExposedPorts)
	assert.NotContains(t, req.Labels, LabelRun)
}

func TestDockerDriver_Strategy(t *testing.T) {
	d := NewDockerDriver(DockerOptions{StartupTimeout: time.Minute})

	tests := []struct {
		name  string
		cond  topology.WaitCondition
		check func(t *testing.T, s wait.Strategy)
	}{
		{
			name: "none",
			cond: nil,
			check: func(t *testing.T, s wait.Strategy) {
				assert.Nil(t, s)
			},
		},
		{
			name: "log line",
			cond: topology.LogLine("listening"),
			check: func(t *testing.T, s wait.Strategy) {
				require.IsType(t, &wait.LogStrategy{}, s)
				assert.Equal(t, "listening", s.(*wait.LogStrategy).Log)
				assert.Equal(t, 1, s.(*wait.LogStrategy).Occurrence)
			},
		},
		{
			name: "log line seen twice",
			cond: topology.LogLineTimes("ready to accept connections", 2),
			check: func(t *testing.T, s wait.Strategy) {
				require.IsType(t, &wait.LogStrategy{}, s)
				assert.Equal(t, 2, s.(*wait.LogStrategy).Occurrence)
			},
		},
		{
			name: "delay",
			cond: topology.Delay(time.Second),
			check: func(t *testing.T, s wait.Strategy) {
				require.IsType(t, &delayStrategy{}, s)
				assert.Equal(t, time.Second, s.(*delayStrategy).delay)
			},
		},
		{
			name: "probe",
			cond: topology.HTTPGet("/"),
			check: func(t *testing.T, s wait.Strategy) {
				require.IsType(t, &probeStrategy{}, s)
				ps := s.(*probeStrategy)
				assert.Equal(t, uint16(8080), ps.port)
				assert.Equal(t, time.Minute, ps.timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, d.strategy(ContainerSpec{Image: "app", Tag: "v1", ExposedPort: 8080, Readiness: tt.cond}))
		})
	}
}

func TestDelayStrategy(t *testing.T) {
	s := &delayStrategy{delay: 10 * time.Millisecond}
	assert.NoError(t, s.WaitUntilReady(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	long := &delayStrategy{delay: time.Hour}
	assert.ErrorIs(t, long.WaitUntilReady(ctx, nil), context.Canceled)
}

func TestProbeStrategy(t *testing.T) {
	attempts := 0
	cond := topology.ProbeCondition{
		Name: "third time lucky",
		Check: func(ctx context.Context, target topology.ProbeTarget) error {
			assert.Equal(t, uint16(5432), target.ExposedPort())
			attempts++
			if attempts < 3 {
				return errors.New("not yet")
			}
			return nil
		},
	}

	s := &probeStrategy{cond: cond, port: 5432, timeout: time.Second, interval: time.Millisecond}
	require.NoError(t, s.WaitUntilReady(context.Background(), nil))
	assert.Equal(t, 3, attempts)
}

func TestProbeStrategy_Timeout(t *testing.T) {
	cond := topology.ProbeCondition{
		Name:  "never",
		Check: func(context.Context, topology.ProbeTarget) error { return errors.New("connection refused") },
	}

	s := &probeStrategy{cond: cond, timeout: 20 * time.Millisecond, interval: 5 * time.Millisecond}
	err := s.WaitUntilReady(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDockerDriver_RejectsForeignHandles(t *testing.T) {
	d := NewDockerDriver(DockerOptions{})
	h := NewHandle("abc", "app:v1", "not a container")

	_, err := d.InternalAddress(context.Background(), h)
	assert.Error(t, err)
	assert.Error(t, d.Stop(context.Background(), nil))
}
