package opts

import (
	"io"
	"time"

	"github.com/walteh/sftpcopy/pkg/config"
	"github.com/walteh/sftpcopy/pkg/remote"
)

// RootOpts contains shared options used by the root command
type RootOpts struct {
	Settings *config.Settings
	Provider remote.Provider
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer

	// PromptPassword reads a password when "-" is given on the command line
	PromptPassword func(prompt string) (string, error)

	ConfigFile       string
	Debug            bool
	SimulateDeadlock bool
	LockTimeout      time.Duration
	Timeout          time.Duration
	StrictHostKeys   bool
	KnownHostsFile   string
	UserDirIsRoot    bool
	BufferSize       int
}
