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

// Package log writes the user-facing progress lines of a copy next to the
// structured zerolog stream.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	stageIndent = 2  // spaces to indent stage entries
	stageWidth  = 12 // Width for stage name
)

// 🏷️ Stage names a step of a copy
type Stage string

const (
	StageAcquire Stage = "acquire"
	StageResolve Stage = "resolve"
	StageCopy    Stage = "copy"
	StageRelease Stage = "release"
)

// 🎯 StageEvent is one step of a copy, for logging
type StageEvent struct {
	Stage  Stage  // which step
	Target string // uri or manager the step acted on
	Detail string // free text, e.g. a session id
	Failed bool   // whether the step failed
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	events  []StageEvent
}

// 🏭 New creates a new logger. Structured output goes to stderr.
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
	return NewWithZerolog(console, zlog)
}

// NewWithZerolog creates a logger around an existing zerolog logger.
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

var discard = NewWithZerolog(io.Discard, zerolog.Nop())

// 🎯 FromContext gets the logger from context, or one that discards everything
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return discard
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// Zerolog returns the structured logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// 📝 formatStage formats a stage event for display
func (l *Logger) formatStage(ev StageEvent) string {
	symbol := '✓'
	symbolColor := color.FgGreen
	if ev.Failed {
		symbol = '✗'
		symbolColor = color.FgRed
	}

	line := fmt.Sprintf("%s%s %s %s",
		fmt.Sprintf("%*s", stageIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", stageWidth, ev.Stage)),
		ev.Target)
	if ev.Detail != "" {
		line += " " + color.New(color.Faint).Sprint("("+ev.Detail+")")
	}
	return line
}

// 📝 LogStage records a stage event. It is printed only in verbose mode
// (debug level or lower); the structured stream always gets it.
func (l *Logger) LogStage(ctx context.Context, ev StageEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)

	if l.zlog.GetLevel() <= zerolog.DebugLevel {
		fmt.Fprintln(l.console, l.formatStage(ev))
	}

	e := l.zlog.Debug()
	if ev.Failed {
		e = l.zlog.Warn()
	}
	e.Str("stage", string(ev.Stage)).
		Str("target", ev.Target).
		Str("detail", ev.Detail).
		Bool("failed", ev.Failed).
		Msg("stage")
}

// Events returns the recorded stage events.
func (l *Logger) Events() []StageEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StageEvent, len(l.events))
	copy(out, l.events)
	return out
}

// 📝 Printf writes a plain line to the console, uncoloured
func (l *Logger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.console, msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Header logs a header line behind an "SFTPCOPY" badge
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	badge := pterm.Info.WithWriter(l.console).WithPrefix(pterm.Prefix{Text: "SFTPCOPY", Style: pterm.Info.Prefix.Style})
	badge.Println(msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}
