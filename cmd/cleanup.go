package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"doco/internal/containerizer"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	cleanupRunID  string
	cleanupDryRun bool
)

// containerJanitor is implemented by containerizer.Janitor.
type containerJanitor interface {
	List(ctx context.Context, runID string) ([]containerizer.StaleContainer, error)
	Clean(ctx context.Context, runID string) (int, error)
}

// cleanupCmd removes containers left behind by interrupted runs.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove containers left behind by interrupted runs",
	Long: `Lists and removes every container labelled as managed by doco.

A suite tears its containers down even when a test fails or is interrupted,
but a killed process cannot. Use --run to restrict the cleanup to one run id
(printed with --verbose) and --dry-run to only list what would be removed.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupRunID, "run", "", "Only remove containers of this run id")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "List the containers without removing them")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	j, err := containerizer.NewJanitor()
	if err != nil {
		return err
	}
	defer j.Close()

	return cleanupContainers(cmd.Context(), cmd.OutOrStdout(), j, cleanupRunID, cleanupDryRun)
}

func cleanupContainers(ctx context.Context, out io.Writer, j containerJanitor, runID string, dryRun bool) error {
	stale, err := j.List(ctx, runID)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		fmt.Fprintln(out, "No doco containers found.")
		return nil
	}

	t := createTable(out)
	t.AppendHeader(table.Row{"ID", "Image", "Run", "Role", "State", "Created"})
	for _, c := range stale {
		t.AppendRow(table.Row{shortID(c.ID), c.Image, c.RunID, c.Role, c.State, c.Created.Format(time.DateTime)})
	}
	t.Render()

	if dryRun {
		fmt.Fprintf(out, "%d container(s) would be removed.\n", len(stale))
		return nil
	}

	removed, err := j.Clean(ctx, runID)
	fmt.Fprintf(out, "Removed %d container(s).\n", removed)
	return err
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
