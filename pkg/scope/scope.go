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

// Package scope pairs the acquisition of connection managers with their
// release, so every manager opened for a copy is closed on every exit path.
package scope

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/manager"
	"gitlab.com/tozd/go/errors"
)

// 🔀 Mode chooses how many managers back a copy
type Mode int

const (
	// ModeShared resolves source and destination through one manager
	ModeShared Mode = iota
	// ModeIsolated resolves source and destination through two managers
	ModeIsolated
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeIsolated:
		return "isolated"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Managers returns how many managers the mode opens.
func (m Mode) Managers() int {
	if m == ModeIsolated {
		return 2
	}
	return 1
}

// ModeFromWorkaround maps the workaround switch onto a mode.
func ModeFromWorkaround(useWorkaround bool) Mode {
	if useWorkaround {
		return ModeIsolated
	}
	return ModeShared
}

// ParseWorkaround reports whether s enables the workaround. Only "yes",
// in any case, does.
func ParseWorkaround(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// Factory opens a fresh manager. name labels it in logs.
type Factory func(ctx context.Context, name string) (*manager.Manager, error)

// 🎯 Scope holds the managers acquired for one copy
type Scope struct {
	mode     Mode
	managers []*manager.Manager

	once       sync.Once
	releaseErr []error
}

// 🏭 Acquire opens the managers for mode. If opening the second manager
// fails the first is released before returning.
func Acquire(ctx context.Context, mode Mode, factory Factory) (*Scope, error) {
	if factory == nil {
		return nil, errdefs.New(errdefs.KindInitialization, "acquiring scope", errors.New("factory is required"))
	}

	var names []string
	switch mode {
	case ModeShared:
		names = []string{"shared"}
	case ModeIsolated:
		names = []string{"source", "destination"}
	default:
		return nil, errdefs.Newf(errdefs.KindInitialization, "acquiring scope", "unknown mode %s", mode)
	}

	s := &Scope{mode: mode}
	for _, name := range names {
		m, err := factory(ctx, name)
		if err != nil {
			s.Release(ctx)
			if errdefs.KindOf(err) == errdefs.KindUnknown {
				err = errdefs.New(errdefs.KindInitialization, "opening "+name+" manager", err)
			}
			return nil, err
		}
		s.managers = append(s.managers, m)
	}

	zerolog.Ctx(ctx).Debug().Str("mode", mode.String()).Int("managers", len(s.managers)).Msg("scope acquired")
	return s, nil
}

func (s *Scope) Mode() Mode { return s.mode }

// Source returns the manager source handles are resolved through.
func (s *Scope) Source() *manager.Manager {
	return s.managers[0]
}

// Destination returns the manager destination handles are resolved through.
// In shared mode it is the source manager.
func (s *Scope) Destination() *manager.Manager {
	return s.managers[len(s.managers)-1]
}

// Managers returns the managers in acquisition order.
func (s *Scope) Managers() []*manager.Manager {
	out := make([]*manager.Manager, len(s.managers))
	copy(out, s.managers)
	return out
}

func (s *Scope) Len() int { return len(s.managers) }

// 🔒 Release closes every manager exactly once, in reverse acquisition order.
// Failures are logged and kept for ReleaseErrors; they never replace the
// error that ended the copy.
func (s *Scope) Release(ctx context.Context) {
	s.once.Do(func() {
		logger := zerolog.Ctx(ctx)
		for i := len(s.managers) - 1; i >= 0; i-- {
			m := s.managers[i]
			for _, sess := range m.Sessions() {
				logger.Debug().Str("manager", m.Name()).Str("session", sess.ID()).
					Dur("age", time.Since(sess.Created())).Msg("closing session")
			}
			if err := m.Close(ctx); err != nil {
				logger.Warn().Err(err).Str("manager", m.ID()).Str("name", m.Name()).Msg("releasing manager")
				s.releaseErr = append(s.releaseErr, err)
			}
		}
		logger.Debug().Int("managers", len(s.managers)).Int("failures", len(s.releaseErr)).Msg("scope released")
	})
}

// ReleaseErrors returns the failures recorded by Release.
func (s *Scope) ReleaseErrors() []error {
	return s.releaseErr
}

// ▶️ Run acquires a scope, runs fn and releases the scope on every exit
// path. A panic in fn is re-raised after release.
func Run(ctx context.Context, mode Mode, factory Factory, fn func(ctx context.Context, s *Scope) error) error {
	s, err := Acquire(ctx, mode, factory)
	if err != nil {
		return err
	}
	defer s.Release(ctx)

	if err := ctx.Err(); err != nil {
		return errors.Errorf("before copy: %w", err)
	}

	return fn(ctx, s)
}
