package topology

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// WaitCondition decides when a freshly started container may be used.
// The set of conditions is closed: LogLine, Delay and Probe.
type WaitCondition interface {
	// Describe returns a short human readable form, used in logs.
	Describe() string
	waitCondition()
}

// LogLineCondition is satisfied once the container output contains Text
// Occurrence times. Zero counts as once.
type LogLineCondition struct {
	Text       string
	Occurrence int
}

func (LogLineCondition) waitCondition() {}

func (c LogLineCondition) Describe() string {
	if c.Occurrence > 1 {
		return fmt.Sprintf("log line %q x%d", c.Text, c.Occurrence)
	}
	return fmt.Sprintf("log line %q", c.Text)
}

// DelayCondition is satisfied after a fixed amount of time has passed since
// the container started.
type DelayCondition struct {
	Duration time.Duration
}

func (DelayCondition) waitCondition() {}

func (c DelayCondition) Describe() string { return "delay " + c.Duration.String() }

// ProbeTarget is the view of a running container a probe gets to see.
type ProbeTarget interface {
	Host(ctx context.Context) (string, error)
	MappedPort(ctx context.Context, port uint16) (uint16, error)
	ExposedPort() uint16
	Logs(ctx context.Context) (string, error)
}

// ProbeFunc returns nil once the container is ready. It is called repeatedly
// until it succeeds or the startup timeout expires.
type ProbeFunc func(ctx context.Context, target ProbeTarget) error

// ProbeCondition is satisfied when Check returns nil.
type ProbeCondition struct {
	Name  string
	Check ProbeFunc
}

func (ProbeCondition) waitCondition() {}

func (c ProbeCondition) Describe() string { return "probe " + c.Name }

// LogLine waits until the container logs contain text.
func LogLine(text string) WaitCondition {
	return LogLineCondition{Text: text}
}

// LogLineTimes waits until text has been logged n times. Postgres, for
// one, prints its ready line once during initdb and again after restarting.
func LogLineTimes(text string, n int) WaitCondition {
	return LogLineCondition{Text: text, Occurrence: n}
}

// Delay waits a fixed duration after start.
func Delay(d time.Duration) WaitCondition {
	return DelayCondition{Duration: d}
}

// Probe waits until check succeeds.
func Probe(name string, check ProbeFunc) WaitCondition {
	return ProbeCondition{Name: name, Check: check}
}

// HTTPGet waits until a GET on path against the exposed port answers with a
// status below 500.
func HTTPGet(path string) WaitCondition {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Probe("GET "+path, func(ctx context.Context, target ProbeTarget) error {
		host, err := target.Host(ctx)
		if err != nil {
			return err
		}
		port, err := target.MappedPort(ctx, target.ExposedPort())
		if err != nil {
			return err
		}

		url := "http://" + host + ":" + strconv.Itoa(int(port)) + path
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("GET %s returned %d", url, resp.StatusCode)
		}
		return nil
	})
}
