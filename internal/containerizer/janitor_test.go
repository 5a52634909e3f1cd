package containerizer

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDockerAPI struct {
	containers []types.Container
	listOpts   container.ListOptions
	removed    []string
	failRemove map[string]error
}

func (f *fakeDockerAPI) ContainerList(_ context.Context, opts container.ListOptions) ([]types.Container, error) {
	f.listOpts = opts
	return f.containers, nil
}

func (f *fakeDockerAPI) ContainerRemove(_ context.Context, id string, opts container.RemoveOptions) error {
	if !opts.Force {
		return errors.New("expected forced removal")
	}
	if err, ok := f.failRemove[id]; ok {
		return err
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDockerAPI) Close() error { return nil }

func TestJanitor_List(t *testing.T) {
	api := &fakeDockerAPI{
		containers: []types.Container{
			{ID: "aaaaaaaaaaaaaaaa", Image: "app:v1", State: "running", Created: 1700000000, Labels: map[string]string{LabelRun: "r1", LabelRole: "server"}},
		},
	}
	j := &Janitor{cli: api}

	stale, err := j.List(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "r1", stale[0].RunID)
	assert.Equal(t, "server", stale[0].Role)
	assert.Equal(t, int64(1700000000), stale[0].Created.Unix())

	assert.True(t, api.listOpts.All)
	assert.ElementsMatch(t, []string{LabelManaged + "=true", LabelRun + "=r1"}, api.listOpts.Filters.Get("label"))
}

func TestJanitor_Clean(t *testing.T) {
	api := &fakeDockerAPI{
		containers: []types.Container{
			{ID: "one"},
			{ID: "two"},
			{ID: "three"},
		},
		failRemove: map[string]error{"two": errors.New("device busy")},
	}
	j := &Janitor{cli: api}

	removed, err := j.Clean(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"one", "three"}, api.removed)
	assert.Equal(t, []string{LabelManaged + "=true"}, api.listOpts.Filters.Get("label"))
}
