// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🏃 OperationRunner executes operations
type OperationRunner struct {
	logger   *zerolog.Logger
	async    bool
	timeout  time.Duration
	inflight sync.WaitGroup
}

// RunnerOption configures an OperationRunner.
type RunnerOption func(*OperationRunner)

// WithTimeout bounds every Run; zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *OperationRunner) { r.timeout = d }
}

// 🏗️ NewRunner creates a new runner. An async runner executes the operation
// on its own goroutine and returns as soon as ctx is done, even if the
// operation is stuck somewhere that ignores ctx.
func NewRunner(logger *zerolog.Logger, async bool, opts ...RunnerOption) *OperationRunner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &OperationRunner{
		logger: logger,
		async:  async,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// 🏃 Run executes an operation
func (r *OperationRunner) Run(ctx context.Context, op Operation) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := r.logger.With().Str("operation", op.Name()).Logger()
	logger.Debug().Bool("async", r.async).Dur("timeout", r.timeout).Msg("running operation")

	start := time.Now()
	var err error
	if r.async {
		err = r.runAsync(ctx, op)
	} else {
		err = r.runSync(ctx, op)
	}

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && r.timeout > 0 && errdefs.KindOf(err) != errdefs.KindTimeout:
		err = errdefs.New(errdefs.KindTimeout, op.Name(), errors.Errorf("did not finish within %s: %w", r.timeout, err))
	case errors.Is(err, context.Canceled) && errdefs.KindOf(err) == errdefs.KindUnknown:
		// interrupted from outside; the sessions of the operation are torn down
		err = errdefs.New(errdefs.KindConnection, op.Name(), errors.Errorf("interrupted: %w", err))
	}

	logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("operation finished")
	return err
}

// 🔄 runSync runs an operation synchronously
func (r *OperationRunner) runSync(ctx context.Context, op Operation) error {
	return op.Execute(ctx)
}

// ⚡ runAsync runs an operation asynchronously
func (r *OperationRunner) runAsync(ctx context.Context, op Operation) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan error, 1)

	g.Go(func() error {
		if err := op.Execute(gctx); err != nil {
			return errors.Errorf("executing operation: %w", err)
		}
		return nil
	})

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		done <- g.Wait()
	}()

	// Wait for completion or context cancellation
	select {
	case <-ctx.Done():
		return errors.Errorf("operation cancelled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// Wait blocks until every operation abandoned by an async Run has returned.
func (r *OperationRunner) Wait() {
	r.inflight.Wait()
}

// ⏳ WaitContext is Wait bounded by ctx. It returns an error if operations
// are still running when ctx is done.
func (r *OperationRunner) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Errorf("waiting for abandoned operations: %w", ctx.Err())
	}
}
