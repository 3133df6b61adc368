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

// Package errdefs defines the failure kinds surfaced by sftpcopy.
//
// Every error that crosses a package boundary is an *Error carrying the
// stage that failed. Callers match on the kind with errors.Is against the
// sentinels below:
//
//	if errors.Is(err, errdefs.ErrTimeout) { ... }
package errdefs

import (
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind classifies a failure by the stage that produced it
type Kind int

const (
	KindUnknown Kind = iota
	KindUsage
	KindConfig
	KindInitialization
	KindConnection
	KindCopy
	KindRelease
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindConfig:
		return "config error"
	case KindInitialization:
		return "initialization error"
	case KindConnection:
		return "connection error"
	case KindCopy:
		return "copy error"
	case KindRelease:
		return "release error"
	case KindTimeout:
		return "timeout error"
	default:
		return "error"
	}
}

var (
	ErrUsage          = &Error{Kind: KindUsage}
	ErrConfig         = &Error{Kind: KindConfig}
	ErrInitialization = &Error{Kind: KindInitialization}
	ErrConnection     = &Error{Kind: KindConnection}
	ErrCopy           = &Error{Kind: KindCopy}
	ErrRelease        = &Error{Kind: KindRelease}
	ErrTimeout        = &Error{Kind: KindTimeout}
)

// 🚨 Error is a failure tagged with its kind and the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// 🏭 New wraps err with a kind and an operation description
func New(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(op)
		op = ""
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// 🏭 Newf builds a kind-tagged error from a format string
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind when the target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

// 🔍 KindOf returns the kind of the outermost *Error in the chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
