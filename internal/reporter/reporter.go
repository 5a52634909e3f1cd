// Package reporter renders suite progress and results for the terminal and
// optionally saves a JSON report.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"doco/internal/orchestrator"
	dstrings "doco/pkg/strings"
)

// Reporter receives suite progress events.
type Reporter interface {
	ReportStart(total int)
	ReportTestStart(name string)
	ReportTestResult(result orchestrator.Result)
	ReportSuiteResult(summary *orchestrator.Summary)
}

// Options configures a console reporter.
type Options struct {
	Verbose    bool
	Debug      bool
	ReportPath string
	// NoColor disables ANSI colors, for example when output is not a terminal.
	NoColor bool
}

type consoleReporter struct {
	out     io.Writer
	opts    Options
	started time.Time
}

// New returns a Reporter writing to out.
func New(out io.Writer, opts Options) Reporter {
	return &consoleReporter{out: out, opts: opts}
}

func (r *consoleReporter) ReportStart(total int) {
	r.started = time.Now()
	fmt.Fprintf(r.out, "Running %d tests...\n", total)
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "   • Debug mode: %t\n", r.opts.Debug)
		if r.opts.ReportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", r.opts.ReportPath)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *consoleReporter) ReportTestStart(name string) {
	if r.opts.Verbose {
		// log lines follow, keep the result on its own line
		fmt.Fprintf(r.out, "%s...\n", name)
		return
	}
	fmt.Fprintf(r.out, "%s... ", name)
}

func (r *consoleReporter) ReportTestResult(result orchestrator.Result) {
	if result.Status == orchestrator.StatusSkipped {
		// never started, so no "<name>..." prefix was printed
		fmt.Fprintf(r.out, "%s... %s\n", result.Name, r.colorize(text.FgYellow, "skipped"))
		return
	}

	if result.Passed() {
		fmt.Fprintf(r.out, "%s (%s)\n", r.colorize(text.FgGreen, "ok"), round(result.Duration))
	} else {
		fmt.Fprintf(r.out, "%s (%s)\n", r.colorize(text.FgRed, "FAILED"), round(result.Duration))
		if result.Err != nil {
			fmt.Fprintln(r.out, indent(result.Err.Error(), "    "))
		}
	}

	if r.opts.Verbose {
		for _, w := range result.Warnings {
			fmt.Fprintf(r.out, "    %s %s\n", r.colorize(text.FgYellow, "warning:"), w.Error())
		}
	}
}

func (r *consoleReporter) ReportSuiteResult(summary *orchestrator.Summary) {
	fmt.Fprintln(r.out)

	if len(summary.Results) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Test", "Result", "Duration", "Warnings", "Error"})
		for _, res := range summary.Results {
			var msg string
			if res.Err != nil {
				msg = dstrings.Excerpt(dstrings.FirstLine(res.Err.Error()), dstrings.DefaultExcerptLen)
			}
			t.AppendRow(table.Row{res.Name, r.statusCell(res.Status), round(res.Duration), len(res.Warnings), msg})
		}
		t.AppendFooter(table.Row{"Total", fmt.Sprintf("%d/%d passed", summary.Passed, summary.Total), round(summary.Duration), "", ""})
		t.Render()
	}

	parts := []string{fmt.Sprintf("%d passed", summary.Passed)}
	if summary.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", summary.Failed))
	}
	if summary.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", summary.Errors))
	}
	if summary.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", summary.Skipped))
	}
	fmt.Fprintf(r.out, "%s in %s\n", strings.Join(parts, ", "), round(summary.Duration))
	if summary.Interrupted {
		fmt.Fprintln(r.out, r.colorize(text.FgRed, "Run interrupted before all tests ran."))
	}

	if r.opts.ReportPath != "" {
		if err := SaveReport(r.opts.ReportPath, summary); err != nil {
			fmt.Fprintf(r.out, "Failed to save report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "Report saved to %s\n", r.opts.ReportPath)
		}
	}

	fmt.Fprintln(r.out, "Done.")
}

func (r *consoleReporter) statusCell(s orchestrator.Status) string {
	switch s {
	case orchestrator.StatusPassed:
		return r.colorize(text.FgGreen, string(s))
	case orchestrator.StatusSkipped:
		return r.colorize(text.FgYellow, string(s))
	default:
		return r.colorize(text.FgRed, string(s))
	}
}

func (r *consoleReporter) colorize(c text.Color, s string) string {
	if r.opts.NoColor {
		return s
	}
	return c.Sprint(s)
}

// Report is the JSON form of a suite run.
type Report struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  string    `json:"duration"`
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Errors    int       `json:"errors"`
	Skipped   int       `json:"skipped"`
	// Interrupted marks a run cancelled before all tests ran.
	Interrupted bool         `json:"interrupted,omitempty"`
	Tests       []TestReport `json:"tests"`
}

// TestReport is the JSON form of one test result.
type TestReport struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Duration string   `json:"duration"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewReport converts a summary into its JSON form.
func NewReport(summary *orchestrator.Summary) Report {
	rep := Report{
		StartTime:   summary.StartTime,
		EndTime:     summary.EndTime,
		Duration:    summary.Duration.String(),
		Total:       summary.Total,
		Passed:      summary.Passed,
		Failed:      summary.Failed,
		Errors:      summary.Errors,
		Skipped:     summary.Skipped,
		Interrupted: summary.Interrupted,
		Tests:       make([]TestReport, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		tr := TestReport{
			Name:     res.Name,
			Status:   string(res.Status),
			Duration: res.Duration.String(),
		}
		if res.Err != nil {
			tr.Error = res.Err.Error()
		}
		for _, w := range res.Warnings {
			tr.Warnings = append(tr.Warnings, w.Error())
		}
		rep.Tests = append(rep.Tests, tr)
	}
	return rep
}

// SaveReport writes the JSON report to path, creating parent directories.
func SaveReport(path string, summary *orchestrator.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(NewReport(summary), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func round(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Millisecond)
}
