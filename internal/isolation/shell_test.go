package isolation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_Execute(t *testing.T) {
	assertion := errors.New(`body does not contain "OK"`)

	tests := []struct {
		name      string
		shell     Shell
		fn        Func
		wantErr   bool
		wantPanic bool
		timedOut  bool
		contains  string
	}{
		{
			name: "success",
			fn:   func(ctx context.Context) error { return nil },
		},
		{
			name:     "returned error",
			fn:       func(ctx context.Context) error { return assertion },
			wantErr:  true,
			contains: `test returned error failed: body does not contain "OK"`,
		},
		{
			name:      "panic",
			fn:        func(ctx context.Context) error { panic("index out of range") },
			wantErr:   true,
			wantPanic: true,
			contains:  "test panic panicked: index out of range",
		},
		{
			name:  "timeout honoured by body",
			shell: Shell{Timeout: 20 * time.Millisecond, Grace: time.Second},
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr:  true,
			timedOut: true,
		},
		{
			name:  "timeout ignored by body",
			shell: Shell{Timeout: 10 * time.Millisecond, Grace: 10 * time.Millisecond},
			fn: func(ctx context.Context) error {
				time.Sleep(time.Second)
				return nil
			},
			wantErr:  true,
			timedOut: true,
			contains: "abandoned after context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shell.Execute(context.Background(), tt.name, tt.fn)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ee *ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.name, ee.Test)
			assert.Equal(t, tt.wantPanic, ee.Panic != nil)
			assert.Equal(t, tt.timedOut, ee.TimedOut())
			if tt.wantPanic {
				assert.NotEmpty(t, ee.Stack)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestShell_ReturnedErrorIsUnwrappable(t *testing.T) {
	cause := errors.New("boom")
	var shell Shell

	err := shell.Execute(context.Background(), "t", func(context.Context) error { return cause })
	assert.ErrorIs(t, err, cause)
}

func TestShell_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	shell := Shell{Grace: time.Second}

	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	err := shell.Execute(ctx, "t", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ee.TimedOut())
}

func TestShell_SequentialExecutionsAreIndependent(t *testing.T) {
	var shell Shell

	err := shell.Execute(context.Background(), "first", func(context.Context) error { panic("boom") })
	require.Error(t, err)

	err = shell.Execute(context.Background(), "second", func(context.Context) error { return nil })
	assert.NoError(t, err)
}
