package topology

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerBuilder_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Server, error)
		missing []string
	}{
		{
			name:    "nothing set",
			build:   func() (Server, error) { return NewServer().Build() },
			missing: []string{"image", "tag", "port"},
		},
		{
			name:    "missing image",
			build:   func() (Server, error) { return NewServer().Tag("v1").Port(3000).Build() },
			missing: []string{"image"},
		},
		{
			name:    "missing tag",
			build:   func() (Server, error) { return NewServer().Image("app").Port(3000).Build() },
			missing: []string{"tag"},
		},
		{
			name:    "missing port",
			build:   func() (Server, error) { return NewServer().Image("app").Tag("v1").Build() },
			missing: []string{"port"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected a ValidationError, got %T", err)
			assert.Equal(t, "server", verr.Entity)

			for _, field := range tt.missing {
				assert.Contains(t, err.Error(), field+" is required")
			}
		})
	}
}

func TestServiceBuilder_RequiredFields(t *testing.T) {
	_, err := NewService().Image("postgres").Tag("14").Build()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "service", verr.Entity)
	assert.Equal(t, "port", verr.Field)
}

func TestServerBuilder_ZeroPort(t *testing.T) {
	_, err := NewServer().Image("app").Tag("v1").Port(0).Build()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "port", verr.Field)
	assert.Contains(t, verr.Reason, "between 1 and 65535")
}

func TestServerBuilder_EnvKeepsCallOrder(t *testing.T) {
	b := NewServer().Image("app").Tag("v1").Port(3000)
	names := []string{"C", "A", "B", "A"}
	for i, n := range names {
		b.Env(n, string(rune('0'+i)))
	}

	server, err := b.Build()
	require.NoError(t, err)

	env := server.Env()
	require.Len(t, env, len(names))
	for i, n := range names {
		assert.Equal(t, n, env[i].Name)
	}
	// Duplicates are kept as declared; which one the container ends up with is
	// up to the runtime (last applied wins with Docker).
	assert.Equal(t, Variable{Name: "A", Value: "3"}, env[3])
}

func TestServiceBuilder_ReadinessLastWins(t *testing.T) {
	service, err := NewService().
		Image("redis").
		Tag("7").
		Port(6379).
		WaitFor(Delay(time.Second)).
		WaitFor(LogLine("Ready to accept connections")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, LogLineCondition{Text: "Ready to accept connections"}, service.Readiness())
	assert.Equal(t, "redis", service.Alias())
	assert.Equal(t, "redis:7", service.Reference())
}

func TestServerBuilder_NoReadiness(t *testing.T) {
	server, err := NewServer().Image("app").Tag("v1").Port(8080).Build()
	require.NoError(t, err)
	assert.Nil(t, server.Readiness())
}

func TestBuiltValuesAreFrozen(t *testing.T) {
	b := NewServer().Image("app").Tag("v1").Port(3000).Env("A", "1")
	server, err := b.Build()
	require.NoError(t, err)

	// Further builder calls must not leak into the built value.
	b.Env("B", "2").Image("other")
	assert.Len(t, server.Env(), 1)
	assert.Equal(t, "app", server.Image())

	// Mutating the returned slice must not leak either.
	env := server.Env()
	env[0].Value = "changed"
	assert.Equal(t, "1", server.Env()[0].Value)
}

func TestTopologyBuilder(t *testing.T) {
	server, err := NewServer().Image("app").Tag("v1").Port(3000).Build()
	require.NoError(t, err)
	pg, err := NewService().Image("postgres").Tag("14").Port(5432).Build()
	require.NoError(t, err)
	redis, err := NewService().Image("redis").Tag("7").Port(6379).Build()
	require.NoError(t, err)

	topo, err := New().Server(server).Service(pg).Service(redis).Build()
	require.NoError(t, err)

	assert.Equal(t, "app", topo.Server().Image())
	assert.Equal(t, []string{"postgres", "redis"}, topo.Aliases())
	assert.Empty(t, topo.DuplicateAliases())
}

func TestTopologyBuilder_RequiresServer(t *testing.T) {
	_, err := New().Build()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "topology", verr.Entity)
	assert.Equal(t, "server", verr.Field)

	_, err = New().Server(Server{}).Build()
	require.ErrorAs(t, err, &verr)
}

// Two services sharing an image collide as aliases. The model allows it and
// the later service wins when aliases are applied; this is reported so
// callers can warn about it.
func TestTopology_DuplicateAliasesAreReported(t *testing.T) {
	server, _ := NewServer().Image("app").Tag("v1").Port(3000).Build()
	a, _ := NewService().Image("postgres").Tag("13").Port(5432).Build()
	b, _ := NewService().Image("postgres").Tag("14").Port(5432).Build()

	topo, err := New().Server(server).Service(a).Service(b).Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"postgres"}, topo.DuplicateAliases())
	assert.Equal(t, "14", topo.Services()[1].Tag())
}
