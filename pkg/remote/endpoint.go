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

// Package remote describes remote endpoints and the transfer protocol
// contracts consumed by the connection managers.
package remote

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/walteh/sftpcopy/pkg/errdefs"
	"gitlab.com/tozd/go/errors"
)

const (
	// SchemeSFTP is the only scheme the tool builds URIs for
	SchemeSFTP = "sftp"
	// DefaultPort is the fixed port used when building URIs
	DefaultPort = 22
)

// 🎯 Endpoint identifies one distinct session target. Two URIs naming the
// same host and port resolve to the same Endpoint.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
	Root   string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s", e.Scheme, e.Address())
}

// Address returns host:port for dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// 🔗 BuildURI builds the URI for a path on host. Credentials are never embedded.
func BuildURI(host, p string) string {
	u := url.URL{
		Scheme: SchemeSFTP,
		Host:   net.JoinHostPort(host, strconv.Itoa(DefaultPort)),
		Path:   "/" + strings.TrimLeft(p, "/"),
	}
	return u.String()
}

// 🔍 ParseURI splits a URI into its endpoint and the remote path
func ParseURI(uri string) (Endpoint, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Endpoint{}, "", errdefs.New(errdefs.KindConfig, "parsing uri", err)
	}

	if u.Scheme == "" {
		return Endpoint{}, "", errdefs.Newf(errdefs.KindConfig, "parsing uri", "missing scheme in %q", uri)
	}
	if u.Hostname() == "" {
		return Endpoint{}, "", errdefs.Newf(errdefs.KindConfig, "parsing uri", "missing host in %q", uri)
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			return Endpoint{}, "", errdefs.New(errdefs.KindConfig, "parsing uri",
				errors.New("credentials must not be embedded in the uri"))
		}
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, "", errdefs.Newf(errdefs.KindConfig, "parsing uri", "invalid port %q", p)
		}
	}

	p := path.Clean("/" + u.Path)
	if p == "/" {
		return Endpoint{}, "", errdefs.Newf(errdefs.KindConfig, "parsing uri", "missing file path in %q", uri)
	}

	return Endpoint{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Hostname()),
		Port:   port,
		Root:   "/",
	}, p, nil
}
