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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/walteh/sftpcopy/pkg/remote"
)

// 🔌 Session is an authenticated connection to one endpoint, owned by exactly
// one Manager and closed only by that Manager.
type Session struct {
	id       uuid.UUID
	endpoint remote.Endpoint
	conn     remote.Session
	created  time.Time

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) ID() string { return s.id.String() }

func (s *Session) Endpoint() remote.Endpoint { return s.endpoint }

func (s *Session) Created() time.Time { return s.created }

func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
