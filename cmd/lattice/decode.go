package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/lattice"
)

func decodeCmd() *cli.Command {
	var withIndex bool

	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a raw recording into one sample per line",
		ArgsUsage: "<recording.bin | ->",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "index", Aliases: []string{"i"}, Usage: "prefix each sample with its timestep", Destination: &withIndex},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := readInput(cmd.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			for i, v := range lattice.DecodeResults(raw) {
				s := strconv.FormatFloat(float64(v), 'g', -1, 32)
				if withIndex {
					printf(cmd, "%d\t%s\n", i, s)
					continue
				}
				printf(cmd, "%s\n", s)
			}
			return nil
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
