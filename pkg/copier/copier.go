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

// Package copier streams file content between two resolved handles.
package copier

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/manager"
	"gitlab.com/tozd/go/errors"
)

// Selector decides which files under the source take part in a copy.
type Selector int

const (
	// SelectSelf copies the source file itself and nothing beneath it
	SelectSelf Selector = iota
)

func (s Selector) String() string {
	switch s {
	case SelectSelf:
		return "self"
	default:
		return "unknown"
	}
}

const defaultBufferSize = 32 * 1024

type options struct {
	progress   func(written, total int64)
	bufferSize int
}

// Option configures a copy.
type Option func(*options)

// WithProgress reports bytes written after every chunk. total is the
// source size at the time of the copy.
func WithProgress(fn func(written, total int64)) Option {
	return func(o *options) { o.progress = fn }
}

// WithBufferSize sets the chunk size; values below 1 keep the default.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// 📋 Copy replaces the content of dst with the content of src and returns
// the number of bytes written. A failure part way through leaves dst
// partially written.
func Copy(ctx context.Context, dst, src *manager.Handle, sel Selector, opts ...Option) (int64, error) {
	o := options{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}

	op := "copy"
	if src != nil && dst != nil {
		op = "copy " + src.URI() + " to " + dst.URI()
	}

	if sel != SelectSelf {
		return 0, errdefs.Newf(errdefs.KindCopy, op, "unsupported selector %s", sel)
	}
	if !src.Valid() {
		return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("source: %w", manager.ErrClosed))
	}
	if !dst.Valid() {
		return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("destination: %w", manager.ErrClosed))
	}
	if src.Endpoint() == dst.Endpoint() && src.Path() == dst.Path() {
		return 0, errdefs.Newf(errdefs.KindCopy, op, "source and destination are the same file")
	}

	logger := zerolog.Ctx(ctx).With().Str("from", src.URI()).Str("to", dst.URI()).Logger()

	info, err := src.Stat(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("source does not exist: %w", err))
		}
		return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("stat source: %w", err))
	}
	if info.IsDir() {
		return 0, errdefs.Newf(errdefs.KindCopy, op, "source is a directory")
	}

	r, err := src.Open(ctx)
	if err != nil {
		return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("opening source: %w", err))
	}
	defer r.Close()

	w, err := dst.Create(ctx)
	if err != nil {
		return 0, errdefs.New(errdefs.KindCopy, op, errors.Errorf("creating destination: %w", err))
	}

	logger.Debug().Int64("size", info.Size()).Int("buffer", o.bufferSize).Msg("streaming")

	pw := &progressWriter{w: w, total: info.Size(), fn: o.progress}
	written, err := io.CopyBuffer(pw, &contextReader{ctx: ctx, r: r}, make([]byte, o.bufferSize))
	if err != nil {
		_ = w.Close()
		return written, errdefs.New(errdefs.KindCopy, op, errors.Errorf("streaming after %d bytes: %w", written, err))
	}
	if err := w.Close(); err != nil {
		return written, errdefs.New(errdefs.KindCopy, op, errors.Errorf("closing destination: %w", err))
	}

	logger.Debug().Int64("written", written).Msg("copied")
	return written, nil
}

// contextReader stops a stream once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      func(written, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil && n > 0 {
		p.fn(p.written, p.total)
	}
	return n, err
}
