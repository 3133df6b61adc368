package operation

import (
	"context"
	"time"

	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/manager"
	"github.com/walteh/sftpcopy/pkg/remote"
	"github.com/walteh/sftpcopy/pkg/scope"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operation is one unit of work for the runner
type Operation interface {
	// Name labels the operation in logs
	Name() string
	// Execute runs the operation to completion
	Execute(ctx context.Context) error
}

// 🔧 Options contains what every operation needs
type Options struct {
	// Provider performs the transfer protocol
	Provider remote.Provider
	// Auth is shared read-only by every manager of the operation
	Auth *auth.Config
	// Mode chooses one shared manager or two isolated ones
	Mode scope.Mode
	// LockTimeout bounds every endpoint lock wait; zero waits forever
	LockTimeout time.Duration
	// Hook runs under the endpoint lock on every resolve
	Hook manager.ResolveHook
	// BufferSize is the copy chunk size; zero uses the copier default
	BufferSize int
	// OnManagerOpen observes every manager the operation opens
	OnManagerOpen func(m *manager.Manager)
}

// ✅ Validate checks the options
func (o Options) Validate() error {
	if o.Provider == nil {
		return errdefs.New(errdefs.KindInitialization, "validating options", errors.New("provider is required"))
	}
	if err := o.Auth.Validate(); err != nil {
		return err
	}
	if o.BufferSize < 0 {
		return errdefs.Newf(errdefs.KindConfig, "validating options", "buffer size must not be negative, got %d", o.BufferSize)
	}
	if o.LockTimeout < 0 {
		return errdefs.Newf(errdefs.KindConfig, "validating options", "lock timeout must not be negative, got %s", o.LockTimeout)
	}
	return nil
}

// 🧱 BaseOperation carries the shared options and opens managers for them
type BaseOperation struct {
	Options
}

// 🏗️ NewBaseOperation creates a base operation
func NewBaseOperation(opts Options) BaseOperation {
	return BaseOperation{Options: opts}
}

// 🏭 Factory opens managers configured from the options
func (b BaseOperation) Factory() scope.Factory {
	return func(ctx context.Context, name string) (*manager.Manager, error) {
		m, err := manager.Open(ctx, manager.Options{
			Provider:    b.Provider,
			LockTimeout: b.LockTimeout,
			Hook:        b.Hook,
			Name:        name,
		})
		if err != nil {
			return nil, err
		}
		if b.OnManagerOpen != nil {
			b.OnManagerOpen(m)
		}
		return m, nil
	}
}
