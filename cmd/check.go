package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"doco/internal/config"
	"doco/internal/containerizer"
	"doco/internal/orchestrator"
	"doco/pkg/browser"
	"doco/pkg/registry"
	dstrings "doco/pkg/strings"
	"doco/pkg/topology"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	checkFile     string
	checkPath     string
	checkSelector string
)

// checkCmd starts a topology once, loads one page through the browser and
// tears everything down again.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Start a topology once and check the application answers",
	Long: `Starts the automation driver and the topology described in a file,
loads one page of the application through the browser and tears everything
down again. The endpoints that were used are printed as a table.

The topology file is YAML rendered as a Go template; {{ .Env.NAME }} reads
the environment and a .env file next to the topology file:

  server:
    image: hello
    tag: latest
    port: 8080
    wait: { log: listening }
  services:
    - image: postgres
      tag: "14"
      port: 5432
      env:
        - { name: POSTGRES_PASSWORD, value: '{{ .Env.PGPASSWORD | default "secret" }}' }
      wait: { log: ready to accept connections }`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "topology.yaml", "Topology file")
	checkCmd.Flags().StringVar(&checkPath, "path", "/", "Page to load, relative to the application")
	checkCmd.Flags().StringVar(&checkSelector, "selector", "body", "Element whose text is printed")
}

func runCheck(cmd *cobra.Command, args []string) error {
	topo, err := topology.Load(checkFile)
	if err != nil {
		return err
	}
	settings, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}

	driver, err := containerizer.NewContainerDriver(settings.Runtime, containerizer.DockerOptions{
		RunID:          uuid.NewString(),
		StartupTimeout: settings.Timeouts.Startup,
	})
	if err != nil {
		return err
	}
	connector := browser.NewPlaywrightConnector(browser.PlaywrightOptions{
		Browser: settings.Driver.Browser,
		Timeout: settings.Timeouts.Browser,
	})

	return checkTopology(cmd.Context(), cmd.OutOrStdout(), topo, settings, driver, connector, checkPath, checkSelector)
}

// checkTopology provisions topo once and reports what it found. It fails when
// the application could not be provisioned or the page could not be read.
func checkTopology(ctx context.Context, out io.Writer, topo topology.Topology, settings config.Settings,
	driver containerizer.ContainerDriver, connector browser.Connector, path, selector string) error {
	orch := orchestrator.New(topo, driver, connector, orchestrator.WithSettings(settings))
	defer orch.Shutdown()

	err := withSpinner(out, "Starting automation driver...", func() error {
		return orch.Init(ctx)
	})
	if err != nil {
		return err
	}
	driverURL := orch.DriverEndpoint()

	var baseURL, pageText string
	var res orchestrator.Result
	err = withSpinner(out, "Provisioning topology...", func() error {
		res = orch.Run(ctx, registry.Entry{Name: "check", Func: func(ctx context.Context, c *browser.Client) error {
			baseURL = c.BaseURL()
			if err := c.Goto(ctx, path); err != nil {
				return err
			}
			t, err := c.Text(ctx, selector)
			pageText = t
			return err
		}})
		return nil
	})
	if err != nil {
		return err
	}
	orch.Shutdown()

	status := text.FgGreen.Sprint("ready")
	if !res.Passed() {
		status = text.FgRed.Sprint(strings.ToLower(string(res.Status)))
	}
	provisioned := res.Status != orchestrator.StatusError

	t := createTable(out)
	t.AppendHeader(table.Row{"Container", "Image", "Endpoint", "Status"})
	d := settings.Driver
	t.AppendRow(table.Row{"automation driver", d.Image + ":" + d.Tag, driverURL, text.FgGreen.Sprint("ready")})
	for _, svc := range topo.Services() {
		svcStatus := text.FgGreen.Sprint("started")
		if !provisioned {
			svcStatus = text.FgYellow.Sprint("unknown")
		}
		t.AppendRow(table.Row{"service", svc.Reference(), svc.Alias() + ":" + strconv.Itoa(int(svc.Port())), svcStatus})
	}
	server := topo.Server()
	t.AppendRow(table.Row{"application", server.Reference(), orDash(baseURL), status})
	t.Render()

	if pageText != "" {
		fmt.Fprintf(out, "%s %s: %s\n", path, selector, dstrings.Excerpt(pageText, 200))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "%s %s\n", text.FgYellow.Sprint("warning:"), w.Error())
	}

	if !res.Passed() {
		return fmt.Errorf("check failed: %w", res.Err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
