package main

import (
	"context"
	"fmt"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/pkg/dsg"
)

type sampleStats struct {
	Length  int
	MaxAbs  float64
	MeanAbs float64
	RMSE    float64
	MaxAt   int
}

func diffCmd() *cli.Command {
	var samples bool

	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two cell images region by region, or two recordings sample by sample",
		ArgsUsage: "<a> <b>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "samples", Usage: "treat the inputs as raw recordings", Destination: &samples},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return cli.Exit("error: diff needs two inputs", 1)
			}
			pathA, pathB := cmd.Args().Get(0), cmd.Args().Get(1)

			if samples {
				a, err := readInput(pathA)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				b, err := readInput(pathB)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				da, db := lattice.DecodeResults(a), lattice.DecodeResults(b)
				if len(da) != len(db) {
					printf(cmd, "length: a=%d b=%d\n", len(da), len(db))
				}
				s := compareSamples(da, db)
				printf(cmd, "samples=%d max_abs=%.6g (t=%d) mean_abs=%.6g rmse=%.6g\n", s.Length, s.MaxAbs, s.MaxAt, s.MeanAbs, s.RMSE)
				return nil
			}

			a, err := dsg.Open(pathA)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", pathA, err), 1)
			}
			defer func() { _ = a.Close() }()
			b, err := dsg.Open(pathB)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", pathB, err), 1)
			}
			defer func() { _ = b.Close() }()

			diffs := dsg.Diff(a, b)
			if len(diffs) == 0 {
				printf(cmd, "identical\n")
				return nil
			}
			for _, d := range diffs {
				name := lattice.RegionName(d.ID)
				if d.OnlyIn != "" {
					printf(cmd, "[%d] %s only in %s\n", d.ID, name, d.OnlyIn)
					continue
				}
				printf(cmd, "[%d] %s size=%d/%d used=%d/%d\n", d.ID, name, d.SizeA, d.SizeB, d.UsedA, d.UsedB)
				for _, w := range d.Words {
					printf(cmd, "  %04x: %08x %08x\n", w.Offset, w.A, w.B)
				}
			}
			return cli.Exit("images differ", 1)
		},
	}
}

// compareSamples compares the common prefix of a and b. NaN pairs count as equal.
func compareSamples(a, b []float32) sampleStats {
	n := min(len(a), len(b))
	s := sampleStats{Length: n}
	if n == 0 {
		return s
	}
	var sumAbs, sumSq float64
	for i := 0; i < n; i++ {
		va, vb := float64(a[i]), float64(b[i])
		if math.IsNaN(va) && math.IsNaN(vb) {
			continue
		}
		d := math.Abs(va - vb)
		sumAbs += d
		sumSq += d * d
		if d > s.MaxAbs || math.IsNaN(d) {
			s.MaxAbs = d
			s.MaxAt = i
		}
	}
	s.MeanAbs = sumAbs / float64(n)
	s.RMSE = math.Sqrt(sumSq / float64(n))
	return s
}
