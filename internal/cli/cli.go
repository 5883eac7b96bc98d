// Package cli holds the flag and logging plumbing shared by the commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"pndniutils/pkg/config"
)

// ExitFailure is the exit status for usage, configuration and I/O errors.
// It stays clear of the 0/1/2 statuses allequal uses for its results.
const ExitFailure = 3

// ErrUsage marks errors caused by a malformed command line.
var ErrUsage = errors.New("usage error")

// Common holds the flags every command accepts.
type Common struct {
	ConfigPath string
	LogLevel   string
}

// AddCommon registers --config and --log-level on fs.
func AddCommon(fs *flag.FlagSet) *Common {
	c := &Common{}
	fs.StringVar(&c.ConfigPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level (debug, info, warning, error); overrides the config file")
	return c
}

// Setup loads the configuration and configures logging. The --log-level
// flag takes precedence over the config file.
func (c *Common) Setup() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if c.ConfigPath != "" {
		var err error
		cfg, err = config.LoadConfig(c.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	level := cfg.Logging.Level
	if c.LogLevel != "" {
		level = c.LogLevel
	}
	if err := SetupLogging(os.Stderr, level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogging sends logrus output to w at the named level.
func SetupLogging(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return nil
}

// Parse parses args with fs, allowing flags to appear between and after
// positional arguments. Arguments after "--" are always positional.
func Parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		consumed := len(args) - len(rest)
		if consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// ParseN is Parse requiring exactly n positional arguments, or at least n
// when variadic is set.
func ParseN(fs *flag.FlagSet, args []string, n int, variadic bool) ([]string, error) {
	pos, err := Parse(fs, args)
	if err != nil {
		return nil, err
	}
	if len(pos) < n || (!variadic && len(pos) > n) {
		return nil, fmt.Errorf("%w: expected %s positional arguments, got %d: %s",
			ErrUsage, describeCount(n, variadic), len(pos), strings.Join(pos, " "))
	}
	return pos, nil
}

func describeCount(n int, variadic bool) string {
	if variadic {
		return fmt.Sprintf("at least %d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Fatal logs err and exits with ExitFailure. Usage errors also print the
// flag set's usage; a -h request exits 0.
func Fatal(fs *flag.FlagSet, err error) {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if errors.Is(err, ErrUsage) {
		fs.Usage()
	}
	log.Errorf("%s: %v", fs.Name(), err)
	os.Exit(ExitFailure)
}
