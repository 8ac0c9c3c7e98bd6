package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/logger"
)

var (
	logLevel   string
	logFormat  string
	debug      bool
	ledgerPath string
	userConfig string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       logger.FormatPretty,
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
		&cli.StringFlag{
			Name:        "ledger",
			Usage:       "path to the SQLite deployment ledger",
			Value:       defaultLedgerPath(),
			Destination: &ledgerPath,
		},
		&cli.StringFlag{
			Name:        "user-config",
			Usage:       "path to the user config file",
			Value:       config.UserPath(),
			Destination: &userConfig,
		},
	}
}

func defaultLedgerPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "lattice.db"
	}
	return filepath.Join(dir, "lattice", "ledger.db")
}

// setup applies the user config to unset flags and installs the logger.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.LoadUser(userConfig)
	if err != nil {
		return ctx, err
	}
	applyUserConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	log, err := logger.ForFormat(stderr(cmd), logFormat, level)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// applyUserConfig applies user config defaults to global flags that were
// not set on the command line.
func applyUserConfig(c *cli.Command, cfg config.User) {
	if cfg.LedgerPath != "" && !c.IsSet("ledger") {
		ledgerPath = cfg.LedgerPath
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	userCfg = cfg
}

// userCfg holds the loaded user config for per-command defaults.
var userCfg config.User

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func printf(cmd *cli.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(stdout(cmd), format, args...)
}
