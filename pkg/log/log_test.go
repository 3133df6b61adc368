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

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		level    zerolog.Level
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name:  "plain_lines",
			level: zerolog.InfoLevel,
			op: func(t *testing.T, logger *Logger) {
				logger.Printf("Number of File System Managers: %d", 2)
				logger.Printf("Copy complete from %s to %s", "a", "b")
			},
			wantLogs: []string{
				"Number of File System Managers: 2",
				"Copy complete from a to b",
			},
		},
		{
			name:  "stage_hidden_at_info",
			level: zerolog.InfoLevel,
			op: func(t *testing.T, logger *Logger) {
				logger.LogStage(context.Background(), StageEvent{Stage: StageResolve, Target: "sftp://h:22/a"})
				logger.Printf("done")
			},
			wantLogs: []string{
				"done",
			},
		},
		{
			name:  "stage_shown_at_debug",
			level: zerolog.DebugLevel,
			op: func(t *testing.T, logger *Logger) {
				logger.LogStage(context.Background(), StageEvent{Stage: StageResolve, Target: "sftp://h:22/a", Detail: "session 1"})
				logger.LogStage(context.Background(), StageEvent{Stage: StageCopy, Target: "sftp://h:22/b", Failed: true})
			},
			wantLogs: []string{
				"✓ resolve      sftp://h:22/a (session 1)",
				"✗ copy         sftp://h:22/b",
			},
		},
		{
			name:  "log_messages",
			level: zerolog.InfoLevel,
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name:  "log_formatted_messages",
			level: zerolog.InfoLevel,
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewWithZerolog(buf, zerolog.New(io.Discard).Level(tt.level))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerHeader(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	buf := &bytes.Buffer{}
	logger := NewWithZerolog(buf, zerolog.Nop())
	logger.Header("copy settings")

	out := strings.TrimSpace(buf.String())
	assert.Contains(t, out, "SFTPCOPY")
	assert.Contains(t, out, "copy settings")
	assert.Equal(t, 1, strings.Count(out, "\n")+1, "header is a single line")
}

func TestLoggerRecordsEvents(t *testing.T) {
	logger := NewWithZerolog(io.Discard, zerolog.Nop())
	logger.LogStage(context.Background(), StageEvent{Stage: StageAcquire, Target: "shared"})
	logger.LogStage(context.Background(), StageEvent{Stage: StageRelease, Target: "shared"})

	events := logger.Events()
	require.Len(t, events, 2)
	assert.Equal(t, StageAcquire, events[0].Stage)
	assert.Equal(t, StageRelease, events[1].Stage)
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.NotPanics(t, func() { fallback.Printf("dropped") })
}
