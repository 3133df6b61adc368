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
	"io"
	"os"

	"github.com/walteh/sftpcopy/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 📄 Handle refers to one file on one endpoint. It does not own its session:
// it becomes invalid once the manager that produced it is closed.
type Handle struct {
	uri      string
	endpoint remote.Endpoint
	path     string
	session  *Session
	manager  *Manager
	reused   bool
}

func (h *Handle) URI() string { return h.uri }

func (h *Handle) Endpoint() remote.Endpoint { return h.endpoint }

func (h *Handle) Path() string { return h.path }

func (h *Handle) Session() *Session { return h.session }

// Reused reports whether resolving h found the endpoint session already open.
func (h *Handle) Reused() bool { return h.reused }

// Manager returns the manager that resolved h.
func (h *Handle) Manager() *Manager { return h.manager }

// Valid reports whether the handle's session is still open.
func (h *Handle) Valid() bool {
	return h != nil && h.session != nil && h.manager != nil && h.manager.owns(h.session)
}

// Stat returns the file info, or an error wrapping os.ErrNotExist.
func (h *Handle) Stat(ctx context.Context) (os.FileInfo, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	return h.session.conn.Stat(ctx, h.path)
}

// Exists reports whether the file exists. Errors other than not-exist are returned.
func (h *Handle) Exists(ctx context.Context) (bool, error) {
	_, err := h.Stat(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (h *Handle) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	return h.session.conn.Open(ctx, h.path)
}

// Create opens the file for writing, truncating existing content.
func (h *Handle) Create(ctx context.Context) (io.WriteCloser, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	return h.session.conn.Create(ctx, h.path)
}

func (h *Handle) check() error {
	if !h.Valid() {
		return errors.Errorf("handle %s: %w", h.uri, ErrClosed)
	}
	return nil
}
