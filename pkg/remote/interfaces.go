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

package remote

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/walteh/sftpcopy/pkg/auth"
	"gitlab.com/tozd/go/errors"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Provider{}
)

// RegisterProvider makes a provider available under its scheme.
func RegisterProvider(provider Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[provider.Scheme()] = provider
}

// GetProvider returns the provider registered for scheme.
func GetProvider(scheme string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	provider, ok := registry[strings.ToLower(scheme)]
	if !ok {
		options := []string{}
		for k := range registry {
			options = append(options, k)
		}
		sort.Strings(options)
		return nil, errors.Errorf("provider %s not found, options: %s", scheme, strings.Join(options, ", "))
	}
	return provider, nil
}

// Provider is the transfer protocol implementation. It owns the handshake,
// authentication negotiation and encryption; callers only ever see Sessions.
type Provider interface {
	// Scheme returns the URI scheme served by the provider (e.g. "sftp")
	Scheme() string
	// Connect establishes an authenticated session with the endpoint
	Connect(ctx context.Context, endpoint Endpoint, cfg *auth.Config) (Session, error)
}

// Session is an established transport and authentication context for one
// endpoint. Paths are endpoint paths as found in a URI (e.g. "/a/source.txt").
type Session interface {
	// Stat describes the file at path
	Stat(ctx context.Context, path string) (os.FileInfo, error)
	// Open returns a reader for the file content
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Create opens the file for writing, creating or truncating it
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	// Close tears down the session
	Close() error
}
