package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"doco/pkg/logging"

	"github.com/cenkalti/backoff/v4"
)

// Prober checks that the application answers before a test starts.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// HTTPProber sends plain GET requests at a fixed interval until one gets any
// response.
type HTTPProber struct {
	Client   *http.Client
	Attempts int
	Interval time.Duration
}

// Probe returns nil on the first response of any status, or the last error
// once the attempts are used up.
func (p HTTPProber) Probe(ctx context.Context, url string) error {
	if p.Attempts <= 0 {
		return nil
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		logging.Debug(orchestratorSubsystem, "Liveness probe %s answered %d after %d attempt(s)", url, resp.StatusCode, attempt)
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.Attempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		logging.Debug(orchestratorSubsystem, "Liveness probe %s attempt %d/%d failed: %v", url, attempt, p.Attempts, err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("no response from %s after %d attempt(s): %w", url, attempt, err)
	}
	return nil
}
