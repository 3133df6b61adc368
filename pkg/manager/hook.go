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

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/auth"
)

// ResolveHook runs while Resolve still holds the endpoint lock for h.
type ResolveHook func(ctx context.Context, m *Manager, h *Handle, cfg *auth.Config) error

type nestedKey struct{}

// 💥 NestedResolveHook resolves the same URI again through the same manager
// from inside the lock, the way an existence check inside the protocol
// library can. Only the outermost resolve nests, so the hook cannot recurse.
//
// With no LockTimeout the nested call never returns.
func NestedResolveHook() ResolveHook {
	return func(ctx context.Context, m *Manager, h *Handle, cfg *auth.Config) error {
		if ctx.Value(nestedKey{}) != nil {
			return nil
		}
		zerolog.Ctx(ctx).Debug().Str("uri", h.URI()).Msg("nested resolve under endpoint lock")

		_, err := m.Resolve(context.WithValue(ctx, nestedKey{}, true), h.URI(), cfg)
		return err
	}
}

// 💥 SharedSessionHook is NestedResolveHook limited to resolves that reuse
// an open session, the situation a second file on the same host creates
// when both files go through one manager. A fresh manager per file never
// reuses a session, so it never nests.
func SharedSessionHook() ResolveHook {
	nested := NestedResolveHook()
	return func(ctx context.Context, m *Manager, h *Handle, cfg *auth.Config) error {
		if !h.Reused() {
			return nil
		}
		return nested(ctx, m, h, cfg)
	}
}
