// Package commands implements the assetpipe command line.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Root    string           `short:"C" name:"root" help:"Project root directory" default:"." type:"existingdir"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build assets, manifest and pages into the dist directory"`
	Serve   ServeCmd   `cmd:"" help:"Serve dist, rebuild on change and live reload browsers"`
	Lookup  LookupCmd  `cmd:"" help:"Print the output path recorded for a manifest key"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a logical asset path to its hashed variant in dist"`
}

// AfterApply runs after flag parsing: load .env files, then set up logging
// so ASSETPIPE_LOG_LEVEL may come from them.
func (c *CLI) AfterApply() error {
	if _, err := config.LoadDotEnv(c.Root); err != nil {
		return errors.ConfigError("load .env").WithCause(err).Build()
	}
	level := parseLogLevel(c.Verbose, os.Getenv(config.EnvLogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel maps --verbose and ASSETPIPE_LOG_LEVEL to a level. The flag
// wins; unknown values fall back to info.
func parseLogLevel(verbose bool, raw string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// environment resolves the project root and build environment, with
// command flags layered over environment variables.
func (c *CLI) environment(production, legacy bool) (string, config.Env, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return "", config.Env{}, errors.ConfigError("resolve project root").WithCause(err).Build()
	}
	env := config.ResolveEnv(os.LookupEnv)
	if production {
		env.Production = true
	}
	if legacy {
		env.Legacy = true
	}
	return root, env, nil
}
