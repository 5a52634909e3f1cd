package containerizer

import (
	"context"
	"fmt"
	"time"

	"doco/pkg/logging"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// dockerAPI is the subset of the Docker client the janitor uses.
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// StaleContainer describes a container left behind by an earlier run.
type StaleContainer struct {
	ID      string
	Image   string
	RunID   string
	Role    string
	State   string
	Created time.Time
}

// Janitor finds and removes containers labelled as managed by doco. It covers
// runs that were killed before their teardown could finish.
type Janitor struct {
	cli dockerAPI
}

// NewJanitor connects to the Docker daemon configured in the environment.
func NewJanitor() (*Janitor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Janitor{cli: cli}, nil
}

// Close releases the Docker client.
func (j *Janitor) Close() error {
	return j.cli.Close()
}

// List returns managed containers, optionally restricted to one run.
func (j *Janitor) List(ctx context.Context, runID string) ([]StaleContainer, error) {
	args := filters.NewArgs(filters.Arg("label", LabelManaged+"=true"))
	if runID != "" {
		args.Add("label", LabelRun+"="+runID)
	}

	containers, err := j.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	out := make([]StaleContainer, 0, len(containers))
	for _, c := range containers {
		out = append(out, StaleContainer{
			ID:      c.ID,
			Image:   c.Image,
			RunID:   c.Labels[LabelRun],
			Role:    c.Labels[LabelRole],
			State:   c.State,
			Created: time.Unix(c.Created, 0),
		})
	}
	return out, nil
}

// Clean force-removes managed containers and returns how many were removed.
// Individual failures are retried briefly, then logged and skipped.
func (j *Janitor) Clean(ctx context.Context, runID string) (int, error) {
	stale, err := j.List(ctx, runID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, c := range stale {
		remove := func() error {
			err := j.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true})
			if errdefs.IsNotFound(err) {
				return nil
			}
			return err
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 3), ctx)
		if err := backoff.Retry(remove, policy); err != nil {
			logging.WarnErr(dockerSubsystem, err, "Failed to remove stale container %s", shortID(c.ID))
			continue
		}
		logging.Info(dockerSubsystem, "Removed stale container %s (%s)", shortID(c.ID), c.Image)
		removed++
	}
	return removed, nil
}
