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

// Package sftptest serves in-memory sftp hosts for tests. Every dial starts a
// real sftp request server over io.Pipe, so the full client protocol runs
// without sockets or ssh.
package sftptest

import (
	"context"
	"io"
	"path"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/remote"
	sftpremote "github.com/walteh/sftpcopy/pkg/remote/sftp"
	"gitlab.com/tozd/go/errors"
)

// ErrAuthFailed is returned when a dial presents the wrong credentials.
var ErrAuthFailed = errors.New("sftptest: authentication failed")

// ErrUnknownHost is returned when dialing a host that was never added.
var ErrUnknownHost = errors.New("sftptest: no such host")

// 🌐 Network is a set of in-memory sftp hosts
type Network struct {
	mu        sync.Mutex
	hosts     map[string]sftp.Handlers
	passwords map[string]string
	dials     atomic.Int64
	onDial    func(endpoint remote.Endpoint) error
}

// 🏭 NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{
		hosts:     map[string]sftp.Handlers{},
		passwords: map[string]string{},
	}
}

// AddHost creates an empty host. Adding an existing host is a no-op.
func (n *Network) AddHost(host string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.hosts[host]; !ok {
		n.hosts[host] = sftp.InMemHandler()
	}
}

// SetPassword requires password for user on every host.
func (n *Network) SetPassword(user, password string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.passwords[user] = password
}

// OnDial installs a hook run before each dial; a returned error fails the dial.
func (n *Network) OnDial(fn func(endpoint remote.Endpoint) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onDial = fn
}

// Dials returns how many sessions have been dialed.
func (n *Network) Dials() int64 {
	return n.dials.Load()
}

// Provider returns an sftp provider dialing this network.
func (n *Network) Provider() *sftpremote.Provider {
	return sftpremote.NewProvider(sftpremote.WithDialer(n.Dial))
}

// 🔌 Dial implements sftpremote.Dialer
func (n *Network) Dial(ctx context.Context, endpoint remote.Endpoint, cfg *auth.Config) (*sftp.Client, io.Closer, error) {
	n.mu.Lock()
	handlers, ok := n.hosts[endpoint.Host]
	want, hasPassword := n.passwords[cfg.Username()]
	onDial := n.onDial
	n.mu.Unlock()

	if onDial != nil {
		if err := onDial(endpoint); err != nil {
			return nil, nil, err
		}
	}
	if !ok {
		return nil, nil, errors.Errorf("%w: %s", ErrUnknownHost, endpoint.Host)
	}
	if hasPassword && want != cfg.Password() {
		return nil, nil, ErrAuthFailed
	}

	client, closer, err := serve(handlers)
	if err != nil {
		return nil, nil, err
	}
	n.dials.Add(1)
	return client, closer, nil
}

// WriteFile stores data at p on host, creating parent directories.
func (n *Network) WriteFile(t testing.TB, host, p string, data []byte) {
	t.Helper()
	n.AddHost(host)

	client, closer := n.dialDirect(t, host)
	defer closer.Close()
	defer client.Close()

	require.NoError(t, client.MkdirAll(path.Dir(p)), "creating parent of %s", p)
	f, err := client.Create(p)
	require.NoError(t, err, "creating %s", p)
	_, err = f.Write(data)
	require.NoError(t, err, "writing %s", p)
	require.NoError(t, f.Close(), "closing %s", p)
}

// ReadFile returns the content of p on host.
func (n *Network) ReadFile(t testing.TB, host, p string) []byte {
	t.Helper()

	client, closer := n.dialDirect(t, host)
	defer closer.Close()
	defer client.Close()

	f, err := client.Open(p)
	require.NoError(t, err, "opening %s", p)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err, "reading %s", p)
	return data
}

// Mkdir creates a directory (and parents) on host.
func (n *Network) Mkdir(t testing.TB, host, p string) {
	t.Helper()
	n.AddHost(host)

	client, closer := n.dialDirect(t, host)
	defer closer.Close()
	defer client.Close()
	require.NoError(t, client.MkdirAll(p))
}

// dialDirect bypasses the dial counter so fixtures do not skew assertions.
func (n *Network) dialDirect(t testing.TB, host string) (*sftp.Client, io.Closer) {
	t.Helper()
	n.mu.Lock()
	handlers, ok := n.hosts[host]
	n.mu.Unlock()
	require.True(t, ok, "unknown host %s", host)

	client, closer, err := serve(handlers)
	require.NoError(t, err)
	return client, closer
}

// pipeConn joins the two halves of the server side of the pipe.
type pipeConn struct {
	io.Reader
	io.WriteCloser
	reader io.Closer
}

func (c pipeConn) Close() error {
	werr := c.WriteCloser.Close()
	rerr := c.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func serve(handlers sftp.Handlers) (*sftp.Client, io.Closer, error) {
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()

	server := sftp.NewRequestServer(pipeConn{Reader: c2sR, WriteCloser: s2cW, reader: c2sR}, handlers)
	// Serve returns on client EOF without closing its side of the pipe, and
	// the client's Close waits for that side to close.
	go func() {
		_ = server.Serve()
		_ = server.Close()
	}()

	client, err := sftp.NewClientPipe(s2cR, c2sW)
	if err != nil {
		_ = server.Close()
		return nil, nil, errors.Errorf("starting in-memory sftp client: %w", err)
	}
	return client, server, nil
}
