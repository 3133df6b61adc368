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

package scope_test

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/manager"
	"github.com/walteh/sftpcopy/pkg/remote"
	"github.com/walteh/sftpcopy/pkg/scope"
	"gitlab.com/tozd/go/errors"
)

// recorder hands out sessions that log when they are closed.
type recorder struct {
	mu       sync.Mutex
	closed   []string
	closeErr map[string]error
}

func (r *recorder) Scheme() string { return remote.SchemeSFTP }

func (r *recorder) Connect(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (remote.Session, error) {
	return &recordedSession{host: endpoint.Host, r: r}, nil
}

type recordedSession struct {
	host string
	r    *recorder
}

func (s *recordedSession) Stat(context.Context, string) (os.FileInfo, error) {
	return nil, os.ErrNotExist
}

func (s *recordedSession) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}

func (s *recordedSession) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, os.ErrPermission
}

func (s *recordedSession) Close() error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.closed = append(s.r.closed, s.host)
	return s.r.closeErr[s.host]
}

type fixture struct {
	ctx     context.Context
	rec     *recorder
	cfg     *auth.Config
	opened  []string
	factory scope.Factory
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx: zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background()),
		rec: &recorder{closeErr: map[string]error{}},
	}
	cfg, err := auth.New("bob", "secret")
	require.NoError(t, err)
	f.cfg = cfg
	f.factory = func(ctx context.Context, name string) (*manager.Manager, error) {
		f.opened = append(f.opened, name)
		return manager.Open(ctx, manager.Options{Provider: f.rec, Name: name})
	}
	return f
}

func TestParseWorkaround(t *testing.T) {
	tests := []struct {
		in   string
		want scope.Mode
	}{
		{in: "yes", want: scope.ModeIsolated},
		{in: "YES", want: scope.ModeIsolated},
		{in: " Yes ", want: scope.ModeIsolated},
		{in: "no", want: scope.ModeShared},
		{in: "true", want: scope.ModeShared},
		{in: "", want: scope.ModeShared},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mode := scope.ModeFromWorkaround(scope.ParseWorkaround(tt.in))
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestAcquireManagerCount(t *testing.T) {
	tests := []struct {
		name  string
		mode  scope.Mode
		want  int
		names []string
	}{
		{name: "shared", mode: scope.ModeShared, want: 1, names: []string{"shared"}},
		{name: "isolated", mode: scope.ModeIsolated, want: 2, names: []string{"source", "destination"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			s, err := scope.Acquire(f.ctx, tt.mode, f.factory)
			require.NoError(t, err)
			defer s.Release(f.ctx)

			assert.Equal(t, tt.want, s.Len())
			assert.Equal(t, tt.want, tt.mode.Managers())
			assert.Equal(t, tt.names, f.opened)
			if tt.mode == scope.ModeShared {
				assert.Same(t, s.Source(), s.Destination())
			} else {
				assert.NotSame(t, s.Source(), s.Destination())
				assert.NotEqual(t, s.Source().ID(), s.Destination().ID())
			}
		})
	}
}

func TestAcquireUnknownMode(t *testing.T) {
	f := setup(t)
	_, err := scope.Acquire(f.ctx, scope.Mode(9), f.factory)
	require.ErrorIs(t, err, errdefs.ErrInitialization)
	assert.Empty(t, f.opened)
}

func TestAcquireReleasesFirstWhenSecondFails(t *testing.T) {
	f := setup(t)
	var first *manager.Manager
	factory := func(ctx context.Context, name string) (*manager.Manager, error) {
		if first != nil {
			return nil, errors.New("out of sockets")
		}
		m, err := f.factory(ctx, name)
		first = m
		return m, err
	}

	_, err := scope.Acquire(f.ctx, scope.ModeIsolated, factory)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrInitialization)
	assert.Contains(t, err.Error(), "opening destination manager")
	require.NotNil(t, first)
	assert.Equal(t, manager.StateClosed, first.State())
}

func TestReleaseReverseOrderOnce(t *testing.T) {
	f := setup(t)
	s, err := scope.Acquire(f.ctx, scope.ModeIsolated, f.factory)
	require.NoError(t, err)

	_, err = s.Destination().Resolve(f.ctx, remote.BuildURI("dst-host", "f"), f.cfg)
	require.NoError(t, err)
	_, err = s.Source().Resolve(f.ctx, remote.BuildURI("src-host", "f"), f.cfg)
	require.NoError(t, err)

	s.Release(f.ctx)
	s.Release(f.ctx)

	assert.Equal(t, []string{"dst-host", "src-host"}, f.rec.closed)
	for _, m := range s.Managers() {
		assert.Equal(t, manager.StateClosed, m.State())
	}
	assert.Empty(t, s.ReleaseErrors())
}

func TestRunKeepsPrimaryErrorOverReleaseError(t *testing.T) {
	f := setup(t)
	f.rec.closeErr["h"] = errors.New("connection reset")
	primary := errors.New("copy failed")

	var captured *scope.Scope
	err := scope.Run(f.ctx, scope.ModeShared, f.factory, func(ctx context.Context, s *scope.Scope) error {
		captured = s
		_, err := s.Source().Resolve(ctx, remote.BuildURI("h", "f"), f.cfg)
		require.NoError(t, err)
		return primary
	})

	require.ErrorIs(t, err, primary)
	require.NotNil(t, captured)
	require.Len(t, captured.ReleaseErrors(), 1)
	assert.ErrorIs(t, captured.ReleaseErrors()[0], errdefs.ErrRelease)
}

func TestRunReleasesOnPanic(t *testing.T) {
	f := setup(t)
	var captured *scope.Scope

	assert.PanicsWithValue(t, "boom", func() {
		_ = scope.Run(f.ctx, scope.ModeIsolated, f.factory, func(ctx context.Context, s *scope.Scope) error {
			captured = s
			panic("boom")
		})
	})

	require.NotNil(t, captured)
	for _, m := range captured.Managers() {
		assert.Equal(t, manager.StateClosed, m.State())
	}
}

func TestRunCancelledContext(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	called := false
	err := scope.Run(ctx, scope.ModeShared, f.factory, func(context.Context, *scope.Scope) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Len(t, f.opened, 1)
}
