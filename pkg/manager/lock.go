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

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"
)

// endpointLock serialises session setup for one endpoint. It is not
// reentrant: a holder acquiring it again blocks until the bound expires.
type endpointLock struct {
	endpoint remote.Endpoint
	sem      *semaphore.Weighted
	timeout  time.Duration

	mu     sync.Mutex
	holder string
	since  time.Time
}

func newEndpointLock(endpoint remote.Endpoint, timeout time.Duration) *endpointLock {
	return &endpointLock{
		endpoint: endpoint,
		sem:      semaphore.NewWeighted(1),
		timeout:  timeout,
	}
}

// acquire blocks until the lock is free, the timeout elapses or ctx is done.
// A zero timeout waits for as long as ctx allows.
func (l *endpointLock) acquire(ctx context.Context, op string) error {
	if l.sem.TryAcquire(1) {
		l.setHolder(op)
		return nil
	}

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		holder, held := l.currentHolder()
		switch {
		case ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return errdefs.Newf(errdefs.KindTimeout, op,
				"waited %s for %s lock held by %q for %s: a nested resolve of the same endpoint through one manager cannot complete",
				time.Since(start).Round(time.Millisecond), l.endpoint, holder, held.Round(time.Millisecond))
		default:
			return errdefs.New(errdefs.KindConnection, op, errors.Errorf("waiting for %s lock: %w", l.endpoint, ctx.Err()))
		}
	}

	l.setHolder(op)
	return nil
}

func (l *endpointLock) release() {
	l.mu.Lock()
	l.holder = ""
	l.since = time.Time{}
	l.mu.Unlock()
	l.sem.Release(1)
}

func (l *endpointLock) setHolder(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holder = op
	l.since = time.Now()
}

func (l *endpointLock) currentHolder() (string, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == "" {
		return "", 0
	}
	return l.holder, time.Since(l.since)
}
