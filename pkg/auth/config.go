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

// Package auth holds the credentials and protocol options shared by every
// connection manager taking part in a copy.
package auth

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/errdefs"
)

const redacted = "[REDACTED]"

// 🔑 Config is the authentication configuration for a remote endpoint.
// A Config is immutable once built and safe to share between managers.
type Config struct {
	username              string
	password              string
	strictHostKeyChecking bool
	userDirIsRoot         bool
	knownHostsFile        string
}

// 🔧 Option customises a Config at construction
type Option func(*Config)

// WithStrictHostKeyChecking enables host key verification against known_hosts.
func WithStrictHostKeyChecking(strict bool) Option {
	return func(c *Config) { c.strictHostKeyChecking = strict }
}

// WithUserDirIsRoot resolves remote paths relative to the login directory.
func WithUserDirIsRoot(userDirIsRoot bool) Option {
	return func(c *Config) { c.userDirIsRoot = userDirIsRoot }
}

// WithKnownHostsFile overrides the known_hosts file used for strict checking.
func WithKnownHostsFile(path string) Option {
	return func(c *Config) { c.knownHostsFile = path }
}

// 🏭 New builds a validated Config
func New(username, password string, opts ...Option) (*Config, error) {
	cfg := &Config{
		username: username,
		password: password,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// 🔍 Validate checks the shape of the credentials
func (c *Config) Validate() error {
	if c == nil {
		return errdefs.New(errdefs.KindConfig, "authentication config is required", nil)
	}
	if c.username == "" {
		return errdefs.New(errdefs.KindConfig, "username is required", nil)
	}
	return nil
}

func (c *Config) Username() string { return c.username }

// Password returns the secret. Never pass the result to a logger.
func (c *Config) Password() string { return c.password }

func (c *Config) StrictHostKeyChecking() bool { return c.strictHostKeyChecking }

func (c *Config) UserDirIsRoot() bool { return c.userDirIsRoot }

func (c *Config) KnownHostsFile() string { return c.knownHostsFile }

// String never includes the password.
func (c *Config) String() string {
	return fmt.Sprintf("user=%s password=%s strict_host_key_checking=%t user_dir_is_root=%t",
		c.username, redacted, c.strictHostKeyChecking, c.userDirIsRoot)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("user", c.username).
		Str("password", redacted).
		Bool("strict_host_key_checking", c.strictHostKeyChecking).
		Bool("user_dir_is_root", c.userDirIsRoot)
	if c.knownHostsFile != "" {
		e.Str("known_hosts_file", c.knownHostsFile)
	}
}
