package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sftpcopy/pkg/errdefs"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for settings parsers
type Parser interface {
	// 📝 Parse parses the settings from bytes
	Parse(ctx context.Context, data []byte) (*Settings, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// ⚙️ Settings are the tunables of a copy that do not come from the positional arguments
type Settings struct {
	LockTimeout           time.Duration // bound on every endpoint lock wait, 0 waits forever
	Timeout               time.Duration // bound on the whole copy, 0 disables it
	StrictHostKeyChecking bool
	UserDirIsRoot         bool
	KnownHostsFile        string
}

// 📄 rawSettings is the on-disk shape shared by every format
type rawSettings struct {
	LockTimeout           string `json:"lock_timeout" yaml:"lock_timeout" hcl:"lock_timeout,optional"`
	Timeout               string `json:"timeout" yaml:"timeout" hcl:"timeout,optional"`
	StrictHostKeyChecking bool   `json:"strict_host_key_checking" yaml:"strict_host_key_checking" hcl:"strict_host_key_checking,optional"`
	UserDirIsRoot         bool   `json:"user_dir_is_root" yaml:"user_dir_is_root" hcl:"user_dir_is_root,optional"`
	KnownHostsFile        string `json:"known_hosts_file" yaml:"known_hosts_file" hcl:"known_hosts_file,optional"`
}

func (r rawSettings) settings() (*Settings, error) {
	lockTimeout, err := parseDuration("lock_timeout", r.LockTimeout)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("timeout", r.Timeout)
	if err != nil {
		return nil, err
	}
	return &Settings{
		LockTimeout:           lockTimeout,
		Timeout:               timeout,
		StrictHostKeyChecking: r.StrictHostKeyChecking,
		UserDirIsRoot:         r.UserDirIsRoot,
		KnownHostsFile:        os.ExpandEnv(r.KnownHostsFile),
	}, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Errorf("parsing %s: %w", field, err)
	}
	return d, nil
}

// ✅ Validate checks the settings
func (s *Settings) Validate() error {
	if s.LockTimeout < 0 {
		return errors.Errorf("lock_timeout must not be negative, got %s", s.LockTimeout)
	}
	if s.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	return nil
}

// 📥 Load reads settings from path, picking the parser by file extension
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	p := GetParser(strings.ToLower(filepath.Base(path)))
	if p == nil {
		return nil, errdefs.Newf(errdefs.KindConfig, "loading "+path, "unsupported file extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.New(errdefs.KindConfig, "loading "+path, errors.Errorf("reading settings file: %w", err))
	}

	s, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errdefs.New(errdefs.KindConfig, "loading "+path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, errdefs.New(errdefs.KindConfig, "loading "+path, errors.Errorf("validating settings: %w", err))
	}

	logger.Debug().
		Dur("lock_timeout", s.LockTimeout).
		Dur("timeout", s.Timeout).
		Bool("strict_host_key_checking", s.StrictHostKeyChecking).
		Bool("user_dir_is_root", s.UserDirIsRoot).
		Msg("settings loaded")

	return s, nil
}
