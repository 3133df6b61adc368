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

package auth

import (
	"os"
	"path/filepath"
	"time"

	"github.com/walteh/sftpcopy/pkg/errdefs"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 30 * time.Second

// 🔐 SSHClientConfig builds the ssh client configuration for these credentials
func (c *Config) SSHClientConfig() (*ssh.ClientConfig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if c.strictHostKeyChecking {
		path, err := c.knownHostsPath()
		if err != nil {
			return nil, err
		}
		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, errdefs.New(errdefs.KindConfig, "loading known hosts",
				errors.Errorf("parsing %s: %w", path, err))
		}
		hostKeyCallback = cb
	}

	password := c.password
	return &ssh.ClientConfig{
		User: c.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         defaultDialTimeout,
	}, nil
}

func (c *Config) knownHostsPath() (string, error) {
	if c.knownHostsFile != "" {
		return c.knownHostsFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errdefs.New(errdefs.KindConfig, "locating known hosts", err)
	}
	return filepath.Join(home, ".ssh", "known_hosts"), nil
}
