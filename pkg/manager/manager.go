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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// ErrClosed is returned when using a manager, or a handle of a manager, after Close.
var ErrClosed = errors.New("manager: closed")

// 🔧 Options configures a Manager
type Options struct {
	// Provider performs the transfer protocol (required)
	Provider remote.Provider
	// LockTimeout bounds every endpoint lock acquisition; zero waits forever
	LockTimeout time.Duration
	// Hook runs under the endpoint lock before a handle is returned
	Hook ResolveHook
	// Name labels the manager in logs (e.g. "shared", "source")
	Name string
}

// 🗄️ Manager owns the sessions for the endpoints it has resolved.
// See the package documentation for the locking contract and its hazard.
type Manager struct {
	id   uuid.UUID
	opts Options

	mu       sync.Mutex
	state    State
	inflight int
	locks    map[remote.Endpoint]*endpointLock
	sessions map[remote.Endpoint]*Session
}

// 🏭 Open initialises a manager ready to resolve URIs
func Open(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Provider == nil {
		return nil, errdefs.New(errdefs.KindInitialization, "opening manager", errors.New("provider is required"))
	}
	if opts.LockTimeout < 0 {
		return nil, errdefs.Newf(errdefs.KindInitialization, "opening manager", "lock timeout must not be negative, got %s", opts.LockTimeout)
	}

	m := &Manager{
		id:       uuid.New(),
		opts:     opts,
		state:    StateInitialized,
		locks:    map[remote.Endpoint]*endpointLock{},
		sessions: map[remote.Endpoint]*Session{},
	}

	zerolog.Ctx(ctx).Debug().
		Str("manager", m.id.String()).
		Str("name", opts.Name).
		Str("scheme", opts.Provider.Scheme()).
		Dur("lock_timeout", opts.LockTimeout).
		Msg("manager opened")

	return m, nil
}

func (m *Manager) ID() string { return m.id.String() }

func (m *Manager) Name() string { return m.opts.Name }

// State reports the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return StateClosed
	}
	if m.inflight > 0 {
		return StateResolving
	}
	return m.state
}

// 🔍 Resolve returns a handle for uri bound to this manager's session for
// the uri's endpoint, creating the session on first use.
func (m *Manager) Resolve(ctx context.Context, uri string, cfg *auth.Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint, p, err := remote.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if endpoint.Scheme != m.opts.Provider.Scheme() {
		return nil, errdefs.Newf(errdefs.KindConfig, "resolve "+uri, "unsupported scheme %q", endpoint.Scheme)
	}

	logger := zerolog.Ctx(ctx).With().
		Str("manager", m.id.String()).
		Str("endpoint", endpoint.String()).
		Str("path", p).
		Logger()

	lock, err := m.lockFor(endpoint)
	if err != nil {
		return nil, err
	}

	logger.Trace().Msg("acquiring endpoint lock")
	if err := lock.acquire(ctx, "resolve "+uri); err != nil {
		logger.Warn().Err(err).Msg("endpoint lock not acquired")
		return nil, err
	}
	defer lock.release()

	m.enterResolving()
	defer m.exitResolving()

	sess, reused, err := m.sessionFor(logger.WithContext(ctx), endpoint, cfg)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		uri:      uri,
		endpoint: endpoint,
		path:     p,
		session:  sess,
		manager:  m,
		reused:   reused,
	}

	if m.opts.Hook != nil {
		if err := m.opts.Hook(ctx, m, h, cfg); err != nil {
			return nil, errors.Errorf("resolve hook for %s: %w", uri, err)
		}
	}

	logger.Debug().Str("session", sess.ID()).Msg("resolved")
	return h, nil
}

// 🔒 Close releases every session. It is idempotent: later calls return nil.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = map[remote.Endpoint]*Session{}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].endpoint.String() < sessions[j].endpoint.String()
	})

	logger := zerolog.Ctx(ctx).With().Str("manager", m.id.String()).Str("name", m.opts.Name).Logger()

	var errs []error
	for _, s := range sessions {
		if err := s.close(); err != nil {
			logger.Debug().Err(err).Str("session", s.ID()).Msg("closing session")
			errs = append(errs, errors.Errorf("closing session %s for %s: %w", s.ID(), s.endpoint, err))
		}
	}

	logger.Debug().Int("sessions", len(sessions)).Msg("manager closed")

	if len(errs) > 0 {
		return errdefs.New(errdefs.KindRelease, "closing manager "+m.id.String(), errors.Join(errs...))
	}
	return nil
}

// Sessions returns a snapshot of the open sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// SessionCount returns the number of open sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lockFor(endpoint remote.Endpoint) (*endpointLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil, errdefs.New(errdefs.KindInitialization, "resolve", ErrClosed)
	}
	l, ok := m.locks[endpoint]
	if !ok {
		l = newEndpointLock(endpoint, m.opts.LockTimeout)
		m.locks[endpoint] = l
	}
	return l, nil
}

// sessionFor must be called with the endpoint lock held. The manager mutex
// is not held across the network round trip.
func (m *Manager) sessionFor(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (*Session, bool, error) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil, false, errdefs.New(errdefs.KindInitialization, "resolve", ErrClosed)
	}
	if s, ok := m.sessions[endpoint]; ok {
		m.mu.Unlock()
		zerolog.Ctx(ctx).Trace().Str("session", s.ID()).Msg("reusing session")
		return s, true, nil
	}
	m.mu.Unlock()

	conn, err := m.opts.Provider.Connect(ctx, endpoint, cfg)
	if err != nil {
		return nil, false, errdefs.New(errdefs.KindConnection, "connect "+endpoint.String(), err)
	}

	s := &Session{
		id:       uuid.New(),
		endpoint: endpoint,
		conn:     conn,
		created:  time.Now(),
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil, false, errdefs.New(errdefs.KindInitialization, "resolve", ErrClosed)
	}
	m.sessions[endpoint] = s
	m.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("session", s.ID()).Msg("session established")
	return s, false, nil
}

func (m *Manager) enterResolving() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight++
}

func (m *Manager) exitResolving() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.state != StateClosed {
		m.state = StateIdle
	}
}

// owns reports whether s is still the live session of this manager.
func (m *Manager) owns(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != StateClosed && m.sessions[s.endpoint] == s
}
