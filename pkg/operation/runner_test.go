package operation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"gitlab.com/tozd/go/errors"
)

// funcOperation adapts a function to Operation
type funcOperation func(ctx context.Context) error

func (f funcOperation) Name() string { return "func" }

func (f funcOperation) Execute(ctx context.Context) error { return f(ctx) }

func TestRunner(t *testing.T) {
	boom := errors.New("boom")

	// blocks until ctx is done, like a lock wait
	stuck := funcOperation(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	// ignores ctx entirely until released
	release := make(chan struct{})
	deaf := funcOperation(func(context.Context) error {
		<-release
		return nil
	})

	tests := []struct {
		name    string
		async   bool
		timeout time.Duration
		op      Operation
		want    error
	}{
		{name: "sync_ok", op: funcOperation(func(context.Context) error { return nil })},
		{name: "async_ok", async: true, op: funcOperation(func(context.Context) error { return nil })},
		{name: "sync_error", op: funcOperation(func(context.Context) error { return boom }), want: boom},
		{name: "async_error", async: true, op: funcOperation(func(context.Context) error { return boom }), want: boom},
		{name: "sync_timeout", timeout: 20 * time.Millisecond, op: stuck, want: errdefs.ErrTimeout},
		{name: "async_timeout", async: true, timeout: 20 * time.Millisecond, op: stuck, want: errdefs.ErrTimeout},
		{name: "async_timeout_ignoring_ctx", async: true, timeout: 20 * time.Millisecond, op: deaf, want: errdefs.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			r := NewRunner(&logger, tt.async, WithTimeout(tt.timeout))

			err := r.Run(context.Background(), tt.op)
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.want)
			}

			if tt.name == "async_timeout_ignoring_ctx" {
				close(release)
			}
			r.Wait()
		})
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, true)
	err := r.Run(ctx, funcOperation(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errdefs.ErrConnection)
	assert.NotErrorIs(t, err, errdefs.ErrTimeout)
	assert.Contains(t, err.Error(), "connection error: func: interrupted")
	r.Wait()
}

func TestRunnerWaitContext(t *testing.T) {
	release := make(chan struct{})
	returned := make(chan struct{})
	r := NewRunner(nil, true, WithTimeout(10*time.Millisecond))

	err := r.Run(context.Background(), funcOperation(func(context.Context) error {
		<-release
		close(returned)
		return nil
	}))
	require.ErrorIs(t, err, errdefs.ErrTimeout)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.WaitContext(short), context.DeadlineExceeded)

	close(release)
	require.NoError(t, r.WaitContext(context.Background()))

	select {
	case <-returned:
	default:
		t.Fatal("operation still running after WaitContext returned")
	}
}
