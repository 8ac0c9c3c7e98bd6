package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/lattice"
)

func planCmd() *cli.Command {
	var (
		nTimesteps int64
		configPath string
		asJSON     bool
	)

	return &cli.Command{
		Name:  "plan",
		Usage: "Print the memory layout of a cell image",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "n-timesteps",
				Aliases:     []string{"n"},
				Usage:       "timesteps the run records",
				Value:       -1,
				Destination: &nTimesteps,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "deployment file to take the run length and cell count from",
				Destination: &configPath,
			},
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cells := 1
			n := int(nTimesteps)
			if configPath != "" {
				d, err := config.Load(configPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				specs, err := d.ExpandCells()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				cells = len(specs)
				if !cmd.IsSet("n-timesteps") {
					n = d.Timesteps()
				}
			}
			if n < 0 {
				n = config.Default().Timesteps()
			}

			regions := lattice.PlanRegions(n)
			res := lattice.Resources()
			if asJSON {
				type region struct {
					ID    uint32 `json:"id"`
					Name  string `json:"name"`
					Label string `json:"label"`
					Size  int    `json:"size"`
				}
				out := struct {
					NTimesteps int      `json:"n_timesteps"`
					Cells      int      `json:"cells"`
					PerCell    int      `json:"per_cell_bytes"`
					Total      int      `json:"total_bytes"`
					Regions    []region `json:"regions"`
				}{NTimesteps: n, Cells: cells, PerCell: res.Total(n), Total: cells * res.Total(n)}
				for _, r := range regions {
					out.Regions = append(out.Regions, region{uint32(r.ID), lattice.RegionName(r.ID), r.Label, r.Size})
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", data)
				return nil
			}

			printf(cmd, "%-3s %-14s %-24s %8s\n", "ID", "REGION", "LABEL", "BYTES")
			for _, r := range regions {
				printf(cmd, "%-3d %-14s %-24s %8d\n", r.ID, lattice.RegionName(r.ID), r.Label, r.Size)
			}
			printf(cmd, "\nfixed %d B + %d B/timestep x %d = %d B per cell", res.FixedBytes, res.BytesPerTimestep, n, res.Total(n))
			if cells > 1 {
				printf(cmd, ", %d B for %d cells", cells*res.Total(n), cells)
			}
			printf(cmd, "\n")
			return nil
		},
	}
}
