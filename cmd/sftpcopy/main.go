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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/cmd/sftpcopy/opts"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"github.com/walteh/sftpcopy/pkg/log"
	"github.com/walteh/sftpcopy/pkg/remote"
	_ "github.com/walteh/sftpcopy/pkg/remote/sftp"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"
)

func main() {
	provider, err := remote.GetProvider(remote.SchemeSFTP)
	if err != nil {
		log.NewWithZerolog(os.Stderr, zerolog.Nop()).Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], &opts.RootOpts{
		Provider:       provider,
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		PromptPassword: terminalPrompt(os.Stdin, os.Stderr),
	})
	stop()
	os.Exit(code)
}

// 🏃 run executes the command line and returns the process exit status
func run(ctx context.Context, args []string, o *opts.RootOpts) int {
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}

	cmd := newRootCmd(o)
	cmd.SetArgs(args)
	cmd.SetIn(o.Stdin)
	cmd.SetOut(o.Stdout)
	cmd.SetErr(o.Stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	if errors.Is(err, errdefs.ErrUsage) {
		fmt.Fprintln(o.Stdout, usageLine)
		if o.Debug {
			fmt.Fprintln(o.Stderr, err)
		}
		return -1
	}

	log.NewWithZerolog(o.Stderr, zerolog.Nop()).Error(err.Error())
	return 1
}

// terminalPrompt reads a password without echo when in is a terminal
func terminalPrompt(in *os.File, out io.Writer) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("standard input is not a terminal")
		}
		fmt.Fprint(out, prompt)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", errors.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}
}
