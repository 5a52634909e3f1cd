// Package builder turns a git repository into a local Docker image so a
// topology can reference an application that has not been published.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"doco/pkg/logging"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const builderSubsystem = "Builder"

// imageAPI is the part of the Docker client the builder needs.
type imageAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	Close() error
}

// Options tunes a build.
type Options struct {
	// Ref is the branch to build. Empty means the remote's default branch.
	Ref string
	// Dockerfile is relative to the repository root. Defaults to "Dockerfile".
	Dockerfile string
	// Progress receives clone and build output. Nil discards it.
	Progress io.Writer
}

// Builder clones repositories and builds images from them.
type Builder struct {
	api   imageAPI
	clone cloneFunc
}

type cloneFunc func(ctx context.Context, repoURL, dir, ref string, progress io.Writer) error

// New creates a Builder talking to the Docker daemon from the environment.
func New() (*Builder, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Builder{api: cli, clone: clone}, nil
}

// Close releases the Docker client.
func (b *Builder) Close() error {
	return b.api.Close()
}

// Build shallow-clones repoURL and builds it into an image tagged tag.
// It returns the tag once the daemon reports the build finished.
func (b *Builder) Build(ctx context.Context, repoURL, tag string, opts Options) (string, error) {
	if tag == "" {
		return "", errors.New("an image tag is required")
	}
	if opts.Dockerfile == "" {
		opts.Dockerfile = "Dockerfile"
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	tmpDir, err := os.MkdirTemp("", "doco-build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := b.clone(ctx, repoURL, tmpDir, opts.Ref, progress); err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(tmpDir, opts.Dockerfile)); err != nil {
		return "", fmt.Errorf("repository %s has no %s: %w", repoURL, opts.Dockerfile, err)
	}

	buildContext, err := archive.TarWithOptions(tmpDir, &archive.TarOptions{
		ExcludePatterns: []string{".git"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}
	defer buildContext.Close()

	logging.Info(builderSubsystem, "Building image %s from %s", tag, repoURL)
	resp, err := b.api.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: opts.Dockerfile,
		Remove:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The build only completes once the stream is drained; a failed step is
	// reported inside the stream, not as an HTTP error.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, progress, 0, false, nil); err != nil {
		return "", fmt.Errorf("failed to build image %s: %w", tag, err)
	}

	logging.Info(builderSubsystem, "Built image %s", tag)
	return tag, nil
}

func clone(ctx context.Context, repoURL, dir, ref string, progress io.Writer) error {
	opts := &git.CloneOptions{
		URL:      repoURL,
		Progress: progress,
		Depth:    1,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	logging.Debug(builderSubsystem, "Cloning %s into %s", repoURL, dir)
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	return nil
}
