package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/deploy"
	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/store"
)

func resultsCmd() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "Store and read back recorded cell buffers",
		Commands: []*cli.Command{
			resultsRunsCmd(),
			resultsImportCmd(),
			resultsExportCmd(),
		},
	}
}

func resultsRunsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded runs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ledger, err := openLedger()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer ledger.Close()

			runs, err := ledger.ListRuns(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(runs) == 0 {
				printf(cmd, "No runs recorded in %s\n", ledgerPath)
				return nil
			}
			for _, r := range runs {
				printf(cmd, "%-36s  %s  seed=%-6d timesteps=%-8d %s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Seed, r.NTimesteps, r.OutputDir)
			}
			printf(cmd, "\n%d run(s)\n", len(runs))
			return nil
		},
	}
}

func resultsImportCmd() *cli.Command {
	var (
		runID     string
		label     string
		placement string
		channel   int64
		missing   bool
	)

	return &cli.Command{
		Name:      "import",
		Usage:     "Store a drained recording for one core",
		ArgsUsage: "<recording.bin | ->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run", Usage: "run id (default: latest run)", Destination: &runID},
			&cli.StringFlag{Name: "cell", Usage: "cell label; resolves the placement from the ledger", Destination: &label},
			&cli.StringFlag{Name: "placement", Aliases: []string{"p"}, Usage: "core as x,y,p", Destination: &placement},
			&cli.Int64Flag{Name: "channel", Usage: "recorded channel", Value: lattice.RecordingChannel, Destination: &channel},
			&cli.BoolFlag{Name: "missing", Usage: "mark the recording as having lost data", Destination: &missing},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if (label == "") == (placement == "") {
				return cli.Exit("error: exactly one of --cell or --placement is required", 1)
			}
			raw, err := readInput(cmd.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			ledger, err := openLedger()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer ledger.Close()

			run, err := resolveRun(ctx, ledger, runID)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			var p fabric.Placement
			if placement != "" {
				p, err = parsePlacement(placement)
			} else {
				p, err = placementOf(ctx, ledger, run.ID, label)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if err := ledger.PutRecording(ctx, run.ID, p, int(channel), raw, missing); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			logger.FromContext(ctx).Info("recording stored", "run", run.ID, "placement", p.String(), "bytes", len(raw))
			return nil
		},
	}
}

func resultsExportCmd() *cli.Command {
	var (
		runID    string
		workers  int64
		format   string
		timestep int64
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Decode every cell's recording of a run",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run", Usage: "run id (default: latest run)", Destination: &runID},
			&cli.Int64Flag{Name: "workers", Aliases: []string{"j"}, Usage: "concurrent readers (0 = GOMAXPROCS)", Destination: &workers},
			&cli.StringFlag{Name: "format", Usage: "output format (json, csv)", Value: "json", Destination: &format},
			&cli.Int64Flag{Name: "timestep", Aliases: []string{"t"}, Usage: "timestep to export as a grid (csv only)", Destination: &timestep},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if !cmd.IsSet("workers") && userCfg.Workers != nil {
				workers = int64(*userCfg.Workers)
			}

			ledger, err := openLedger()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer ledger.Close()

			run, err := resolveRun(ctx, ledger, runID)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			images, err := ledger.Images(ctx, run.ID)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			samples, err := deploy.Retrieve(ctx, deploy.TargetsFromImages(images), ledger.Buffers(run.ID), int(workers))
			if err != nil {
				if !errors.Is(err, lattice.ErrDataMissing) {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				log.Warn("some recordings are incomplete", "run", run.ID)
			}

			switch strings.ToLower(format) {
			case "csv":
				return deploy.WriteGridCSV(stdout(cmd), samples, int(timestep))
			case "json":
				data, err := json.MarshalIndent(map[string]any{"run": run, "cells": samples}, "", "  ")
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", data)
				return nil
			default:
				return cli.Exit(fmt.Sprintf("error: unknown format %q", format), 1)
			}
		},
	}
}

func resolveRun(ctx context.Context, ledger *store.Store, id string) (store.Run, error) {
	if id == "" {
		return ledger.LatestRun(ctx)
	}
	return ledger.GetRun(ctx, id)
}

func placementOf(ctx context.Context, ledger *store.Store, runID, label string) (fabric.Placement, error) {
	images, err := ledger.Images(ctx, runID)
	if err != nil {
		return fabric.Placement{}, err
	}
	for _, img := range images {
		if img.Label == label {
			return img.Placement, nil
		}
	}
	return fabric.Placement{}, fmt.Errorf("cell %q has no image in run %s", label, runID)
}

func parsePlacement(s string) (fabric.Placement, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fabric.Placement{}, fmt.Errorf("placement %q: want x,y,p", s)
	}
	var v [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return fabric.Placement{}, fmt.Errorf("placement %q: bad coordinate %q", s, part)
		}
		v[i] = n
	}
	return fabric.Placement{X: v[0], Y: v[1], P: v[2]}, nil
}
