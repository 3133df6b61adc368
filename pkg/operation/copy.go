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

package operation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/copier"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/log"
	"github.com/walteh/sftpcopy/pkg/manager"
	"github.com/walteh/sftpcopy/pkg/remote"
	"github.com/walteh/sftpcopy/pkg/scope"
	"gitlab.com/tozd/go/errors"
)

// 📦 CopyRequest names the file to copy and where to put it, both on Host
type CopyRequest struct {
	Host string
	From string
	To   string
}

// FromURI returns the source uri.
func (r CopyRequest) FromURI() string { return remote.BuildURI(r.Host, r.From) }

// ToURI returns the destination uri.
func (r CopyRequest) ToURI() string { return remote.BuildURI(r.Host, r.To) }

// 📊 CopyResult reports what a finished copy did
type CopyResult struct {
	Managers      int
	BytesWritten  int64
	ReleaseErrors []error
}

// 📦 NewCopyOperation creates a new copy operation
func NewCopyOperation(opts Options, req CopyRequest) (*CopyOperation, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Host) == "" {
		return nil, errdefs.Newf(errdefs.KindConfig, "validating copy", "host is required")
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		return nil, errdefs.Newf(errdefs.KindConfig, "validating copy", "both file paths are required")
	}
	return &CopyOperation{
		BaseOperation: NewBaseOperation(opts),
		req:           req,
	}, nil
}

// 📦 CopyOperation replaces the content of one remote file with another's
type CopyOperation struct {
	BaseOperation
	req    CopyRequest
	result CopyResult
}

var _ Operation = (*CopyOperation)(nil)

func (op *CopyOperation) Name() string { return "copy" }

// Result returns the outcome of the last Execute.
func (op *CopyOperation) Result() CopyResult { return op.result }

// 🏃 Execute runs the copy operation
func (op *CopyOperation) Execute(ctx context.Context) error {
	out := log.FromContext(ctx)
	fromURI, toURI := op.req.FromURI(), op.req.ToURI()

	ctx = zerolog.Ctx(ctx).With().Str("mode", op.Mode.String()).Logger().WithContext(ctx)

	op.result = CopyResult{}
	var acquired *scope.Scope

	err := scope.Run(ctx, op.Mode, op.Factory(), func(ctx context.Context, s *scope.Scope) error {
		acquired = s
		op.result.Managers = s.Len()
		out.LogStage(ctx, log.StageEvent{Stage: log.StageAcquire, Target: op.Mode.String(), Detail: managerIDs(s)})

		out.Printf("Number of File System Managers: %d", s.Len())
		out.Printf("Replacing contents of %s with %s", toURI, fromURI)

		dst, err := manager.ResolveHandle(ctx, s.Destination(), "destination", toURI, op.Auth)
		if err != nil {
			out.LogStage(ctx, log.StageEvent{Stage: log.StageResolve, Target: toURI, Failed: true})
			return errors.Errorf("resolving destination: %w", err)
		}
		out.LogStage(ctx, log.StageEvent{Stage: log.StageResolve, Target: toURI, Detail: "session " + dst.Session().ID()})

		src, err := manager.ResolveHandle(ctx, s.Source(), "source", fromURI, op.Auth)
		if err != nil {
			out.LogStage(ctx, log.StageEvent{Stage: log.StageResolve, Target: fromURI, Failed: true})
			return errors.Errorf("resolving source: %w", err)
		}
		out.LogStage(ctx, log.StageEvent{Stage: log.StageResolve, Target: fromURI, Detail: "session " + src.Session().ID()})

		progress := zerolog.Ctx(ctx).With().Str("uri", toURI).Logger()
		n, err := copier.Copy(ctx, dst, src, copier.SelectSelf,
			copier.WithBufferSize(op.BufferSize),
			copier.WithProgress(func(written, total int64) {
				progress.Debug().Int64("written", written).Int64("total", total).Msg("copy progress")
			}),
		)
		op.result.BytesWritten = n
		if err != nil {
			out.LogStage(ctx, log.StageEvent{Stage: log.StageCopy, Target: toURI, Failed: true})
			return err
		}
		out.LogStage(ctx, log.StageEvent{Stage: log.StageCopy, Target: toURI, Detail: formatBytes(n)})

		out.Printf("Copy complete from %s to %s", fromURI, toURI)
		return nil
	})

	if acquired != nil {
		op.result.ReleaseErrors = acquired.ReleaseErrors()
		out.LogStage(ctx, log.StageEvent{Stage: log.StageRelease, Target: op.Mode.String(), Failed: len(op.result.ReleaseErrors) > 0})
	}

	return err
}

func managerIDs(s *scope.Scope) string {
	ids := make([]string, 0, s.Len())
	for _, m := range s.Managers() {
		ids = append(ids, m.Name()+"="+m.ID())
	}
	return strings.Join(ids, " ")
}

func formatBytes(n int64) string {
	if n == 1 {
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", n)
}
