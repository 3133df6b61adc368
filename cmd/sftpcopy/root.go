package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sftpcopy/cmd/sftpcopy/opts"
	"github.com/walteh/sftpcopy/pkg/auth"
	"github.com/walteh/sftpcopy/pkg/config"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/log"
	"github.com/walteh/sftpcopy/pkg/manager"
	"github.com/walteh/sftpcopy/pkg/operation"
	"github.com/walteh/sftpcopy/pkg/scope"
)

const usageLine = "Usage: sftpcopy <useWorkaround> <user> <password> <host> <fromFile> <toFile>"

// releaseGrace bounds how long a failed or interrupted copy may take to
// close its managers before the process exits anyway.
const releaseGrace = 5 * time.Second

// newRootCmd creates the sftpcopy command around o
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sftpcopy <useWorkaround> <user> <password> <host> <fromFile> <toFile>",
		Short: "Replace the contents of one remote file with another over sftp",
		Long: `sftpcopy copies fromFile over toFile, both on host, over sftp.

With useWorkaround=yes each file goes through its own connection manager;
anything else sends both files through a single shared manager.
A password of "-" is read from the terminal.`,
		Args:          exactArgs(6),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, o, args)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errdefs.New(errdefs.KindUsage, "parsing flags", err)
	})

	addRootFlags(cmd, o)
	return cmd
}

// addRootFlags adds the flags of the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "settings file (.yaml, .yml, .hcl or .json)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")

	cmd.Flags().DurationVar(&o.LockTimeout, "lock-timeout", 0, "bound on every endpoint lock wait (0 waits forever)")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", 0, "bound on the whole copy (0 disables it)")
	cmd.Flags().BoolVar(&o.StrictHostKeys, "strict-host-key-checking", false, "verify host keys against known_hosts")
	cmd.Flags().StringVar(&o.KnownHostsFile, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	cmd.Flags().BoolVar(&o.UserDirIsRoot, "user-dir-is-root", false, "resolve paths under the login directory")
	cmd.Flags().IntVar(&o.BufferSize, "buffer-size", 0, "copy chunk size in bytes (0 uses the default)")
	cmd.Flags().BoolVar(&o.SimulateDeadlock, "simulate-deadlock", false, "nest a resolve whenever a session is reused")
	_ = cmd.Flags().MarkHidden("simulate-deadlock")
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return errdefs.Newf(errdefs.KindUsage, "parsing arguments", "expected %d arguments, got %d", n, len(args))
		}
		return nil
	}
}

// loadSettings reads the settings file, if any, and applies the flags that were set
func loadSettings(ctx context.Context, cmd *cobra.Command, o *opts.RootOpts) (*config.Settings, error) {
	settings := &config.Settings{}
	if o.ConfigFile != "" {
		loaded, err := config.Load(ctx, o.ConfigFile)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("lock-timeout") {
		settings.LockTimeout = o.LockTimeout
	}
	if flags.Changed("timeout") {
		settings.Timeout = o.Timeout
	}
	if flags.Changed("strict-host-key-checking") {
		settings.StrictHostKeyChecking = o.StrictHostKeys
	}
	if flags.Changed("known-hosts") {
		settings.KnownHostsFile = o.KnownHostsFile
	}
	if flags.Changed("user-dir-is-root") {
		settings.UserDirIsRoot = o.UserDirIsRoot
	}

	if err := settings.Validate(); err != nil {
		return nil, errdefs.New(errdefs.KindConfig, "validating flags", err)
	}
	return settings, nil
}

// setupLogging builds the structured logger and the console logger for one run
func setupLogging(ctx context.Context, o *opts.RootOpts) context.Context {
	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: o.Stderr}).Level(level).With().Timestamp().Logger()
	ctx = zlog.WithContext(ctx)
	return log.NewContext(ctx, log.NewWithZerolog(o.Stdout, zlog))
}

func runCopy(cmd *cobra.Command, o *opts.RootOpts, args []string) error {
	ctx := setupLogging(cmd.Context(), o)
	logger := zerolog.Ctx(ctx)

	settings, err := loadSettings(ctx, cmd, o)
	if err != nil {
		return err
	}
	o.Settings = settings

	useWorkaround, user, password, host, from, to := args[0], args[1], args[2], args[3], args[4], args[5]

	if password == "-" {
		if o.PromptPassword == nil {
			return errdefs.Newf(errdefs.KindUsage, "reading password", "no terminal to prompt on")
		}
		password, err = o.PromptPassword("Password for " + user + "@" + host + ": ")
		if err != nil {
			return errdefs.New(errdefs.KindUsage, "reading password", err)
		}
	}

	cfg, err := auth.New(user, password,
		auth.WithStrictHostKeyChecking(settings.StrictHostKeyChecking),
		auth.WithUserDirIsRoot(settings.UserDirIsRoot),
		auth.WithKnownHostsFile(settings.KnownHostsFile),
	)
	if err != nil {
		return err
	}

	mode := scope.ModeFromWorkaround(scope.ParseWorkaround(useWorkaround))

	var hook manager.ResolveHook
	if o.SimulateDeadlock {
		hook = manager.SharedSessionHook()
	}

	out := log.FromContext(ctx)
	if o.Debug {
		printBanner(out, mode, settings, o.SimulateDeadlock)
	}
	logger.Debug().Object("auth", cfg).Str("mode", mode.String()).Msg("starting copy")

	op, err := operation.NewCopyOperation(operation.Options{
		Provider:    o.Provider,
		Auth:        cfg,
		Mode:        mode,
		LockTimeout: settings.LockTimeout,
		Hook:        hook,
		BufferSize:  o.BufferSize,
	}, operation.CopyRequest{Host: host, From: from, To: to})
	if err != nil {
		return err
	}

	runner := operation.NewRunner(out.Zerolog(), true, operation.WithTimeout(settings.Timeout))
	runErr := runner.Run(ctx, op)
	if runErr != nil {
		// the copy may still be releasing its managers
		grace, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseGrace)
		defer cancel()
		if err := runner.WaitContext(grace); err != nil {
			out.Warningf("managers not released after %s", releaseGrace)
			return runErr
		}
		if ev, ok := lastFailure(out.Events()); ok {
			logger.Debug().Str("stage", string(ev.Stage)).Str("target", ev.Target).Msg("copy failed")
		}
	}

	res := op.Result()
	for _, rerr := range res.ReleaseErrors {
		out.Warningf("release: %v", rerr)
	}
	if o.Debug && runErr == nil && len(res.ReleaseErrors) == 0 {
		out.Success(fmt.Sprintf("released %d manager(s)", res.Managers))
	}
	return runErr
}

func lastFailure(events []log.StageEvent) (log.StageEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Failed {
			return events[i], true
		}
	}
	return log.StageEvent{}, false
}

// 🎨 printBanner shows the effective settings when debugging
func printBanner(out *log.Logger, mode scope.Mode, settings *config.Settings, simulate bool) {
	out.Header("copy settings")
	out.Infof("mode=%s managers=%d lock-timeout=%s timeout=%s", mode, mode.Managers(), settings.LockTimeout, settings.Timeout)
	if simulate {
		out.Warning("simulating a nested resolve on every reused session")
	}
}
