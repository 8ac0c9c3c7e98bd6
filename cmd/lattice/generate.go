package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/deploy"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/store"
)

func generateCmd() *cli.Command {
	var (
		configPath string
		outDir     string
		seed       int64
		noLedger   bool
		strict     bool
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate one boot image per cell of a deployment file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "deployment file (YAML)",
				Destination: &configPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output directory for images and manifest.json",
				Destination: &outDir,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "override the jitter seed",
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "no-ledger",
				Usage:       "do not record the run in the ledger",
				Destination: &noLedger,
			},
			&cli.BoolFlag{
				Name:        "strict",
				Usage:       "exit non-zero when any cell fails to deploy",
				Destination: &strict,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			d, err := config.Load(configPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if cmd.IsSet("seed") {
				d.Seed = seed
			}
			if outDir == "" {
				outDir = userCfg.OutputDir
			}
			if outDir == "" {
				base := filepath.Base(configPath)
				outDir = filepath.Join("out", base[:len(base)-len(filepath.Ext(base))])
			}

			opts := deploy.Options{OutputDir: outDir}
			if !noLedger {
				ledger, err := openLedger()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				defer ledger.Close()
				opts.Ledger = ledger
			}

			res, err := deploy.Run(ctx, d, opts)
			if err != nil && !errors.Is(err, lattice.ErrConfiguration) {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			failed := res.Failed()
			printf(cmd, "run %s: %d images in %s", res.RunID, len(res.Cells)-len(failed), outDir)
			if len(failed) > 0 {
				printf(cmd, ", %d cells failed", len(failed))
			}
			printf(cmd, "\n")
			for _, c := range failed {
				printf(cmd, "  %s: %v\n", c.Label, c.Err)
			}
			if len(failed) > 0 && strict {
				return cli.Exit("error: deployment incomplete", 2)
			}
			log.Debug("generate done", "run", res.RunID)
			return nil
		},
	}
}

func openLedger() (*store.Store, error) {
	if dir := filepath.Dir(ledgerPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	return store.Open(ledgerPath)
}
