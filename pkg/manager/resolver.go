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
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/errdefs"
)

// Resolver is anything that can turn a URI into a handle.
type Resolver interface {
	Resolve(ctx context.Context, uri string, cfg *auth.Config) (*Handle, error)
}

var _ Resolver = (*Manager)(nil)

// ResolveHandle resolves uri through r, logging the stage. The role
// ("source", "destination") only labels the log line.
func ResolveHandle(ctx context.Context, r Resolver, role, uri string, cfg *auth.Config) (*Handle, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errdefs.Newf(errdefs.KindConfig, "resolve "+role, "empty uri")
	}

	logger := zerolog.Ctx(ctx).With().Str("role", role).Str("uri", uri).Logger()
	logger.Debug().Msg("resolving")

	h, err := r.Resolve(ctx, uri, cfg)
	if err != nil {
		logger.Debug().Err(err).Msg("resolve failed")
		return nil, err
	}

	logger.Debug().Str("session", h.Session().ID()).Msg("resolved handle")
	return h, nil
}
