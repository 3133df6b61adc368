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

// Package sftp implements the remote transfer protocol over SSH using
// github.com/pkg/sftp. Importing it registers the provider for "sftp" URIs.
package sftp

import (
	"context"
	"io"
	"net"
	"os"
	"path"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
)

func init() {
	remote.RegisterProvider(NewProvider())
}

// Dialer opens an sftp client for an endpoint. The returned closer tears
// down the underlying transport after the client has been closed.
type Dialer func(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (*sftp.Client, io.Closer, error)

// 📦 Provider connects to sftp servers
type Provider struct {
	dial Dialer
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithDialer replaces the ssh dialer, e.g. with an in-memory transport.
func WithDialer(d Dialer) ProviderOption {
	return func(p *Provider) { p.dial = d }
}

// 🏭 NewProvider creates a provider dialing real ssh servers by default
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{}
	p.dial = p.sshDial
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Scheme() string {
	return remote.SchemeSFTP
}

// 🔌 Connect performs the handshake and authentication for endpoint
func (p *Provider) Connect(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (remote.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("endpoint", endpoint.String()).Object("auth", cfg).Msg("connecting")

	client, closer, err := p.dial(ctx, endpoint, cfg)
	if err != nil {
		return nil, errors.Errorf("connecting to %s: %w", endpoint, err)
	}

	s := &session{client: client, transport: closer, root: endpoint.Root}
	if cfg.UserDirIsRoot() {
		wd, err := client.Getwd()
		if err != nil {
			_ = s.Close()
			return nil, errors.Errorf("resolving login directory: %w", err)
		}
		s.root = wd
	}

	logger.Debug().Str("endpoint", endpoint.String()).Str("root", s.root).Msg("connected")
	return s, nil
}

// sshDial opens a tcp connection, runs the ssh handshake and starts the
// sftp subsystem.
func (p *Provider) sshDial(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (*sftp.Client, io.Closer, error) {
	sshConfig, err := cfg.SSHClientConfig()
	if err != nil {
		return nil, nil, err
	}

	d := net.Dialer{Timeout: sshConfig.Timeout}
	conn, err := d.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return nil, nil, errors.Errorf("dialing: %w", err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, endpoint.Address(), sshConfig)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, errors.Errorf("starting sftp subsystem: %w", err)
	}

	return client, sshClient, nil
}

// session wraps one sftp client and the transport underneath it
type session struct {
	client    *sftp.Client
	transport io.Closer
	root      string
}

func (s *session) resolve(p string) string {
	return path.Join(s.root, path.Clean("/"+p))
}

func (s *session) Stat(ctx context.Context, p string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.client.Stat(s.resolve(p))
}

func (s *session) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.client.Open(s.resolve(p))
}

func (s *session) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.client.Create(s.resolve(p))
}

func (s *session) Close() error {
	clientErr := s.client.Close()
	var transportErr error
	if s.transport != nil {
		transportErr = s.transport.Close()
	}
	if clientErr != nil {
		return errors.Errorf("closing sftp client: %w", clientErr)
	}
	if transportErr != nil {
		return errors.Errorf("closing transport: %w", transportErr)
	}
	return nil
}
