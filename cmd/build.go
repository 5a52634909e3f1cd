package cmd

import (
	"context"
	"fmt"
	"io"

	"doco/internal/builder"

	"github.com/spf13/cobra"
)

var (
	buildTag        string
	buildRef        string
	buildDockerfile string
)

// imageBuilder is implemented by builder.Builder.
type imageBuilder interface {
	Build(ctx context.Context, repoURL, tag string, opts builder.Options) (string, error)
}

// buildCmd builds a local image from a git repository.
var buildCmd = &cobra.Command{
	Use:   "build <git url>",
	Short: "Build a Docker image from a git repository",
	Long: `Shallow-clones a git repository and builds its Dockerfile into a local
image, so a topology can reference an application that is not published to a
registry.

  doco build https://github.com/example/hello.git --tag hello:dev
  doco build https://github.com/example/hello.git --tag hello:dev --ref feature-x`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "Image tag to build, e.g. hello:dev")
	buildCmd.Flags().StringVar(&buildRef, "ref", "", "Branch to build (default: the remote's default branch)")
	buildCmd.Flags().StringVar(&buildDockerfile, "file", "Dockerfile", "Dockerfile path inside the repository")
	_ = buildCmd.MarkFlagRequired("tag")
}

func runBuild(cmd *cobra.Command, args []string) error {
	b, err := builder.New()
	if err != nil {
		return err
	}
	defer b.Close()

	opts := builder.Options{Ref: buildRef, Dockerfile: buildDockerfile}
	return buildImage(cmd.Context(), cmd.OutOrStdout(), b, args[0], buildTag, opts, rootVerbose)
}

// buildImage streams the clone and build output when verbose, otherwise it
// shows a spinner and prints only the result.
func buildImage(ctx context.Context, out io.Writer, b imageBuilder, repoURL, tag string, opts builder.Options, verbose bool) error {
	if verbose {
		opts.Progress = out
	}

	var image string
	err := withSpinner(out, fmt.Sprintf("Building %s from %s...", tag, repoURL), func() error {
		var err error
		image, err = b.Build(ctx, repoURL, tag, opts)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Built image %s\n", image)
	return nil
}
